package analyzer

import (
	"errors"
	"fmt"
)

// ErrAnalysisFailed matches every *AnalysisError via errors.Is.
var ErrAnalysisFailed = errors.New("analysis failed")

// Kind distinguishes "could not reach analysis" from "analysis produced unusable output".
type Kind int

const (
	// UpstreamError: the completion call itself failed (network, auth, rate limit).
	UpstreamError Kind = iota + 1
	// EmptyResponse: the model answered with no message content.
	EmptyResponse
	// NoJSONFound: the content held no {...} object.
	NoJSONFound
	// InvalidJSON: a {...} object was found but did not parse.
	InvalidJSON
)

func (k Kind) String() string {
	switch k {
	case UpstreamError:
		return "upstream error"
	case EmptyResponse:
		return "empty response"
	case NoJSONFound:
		return "no JSON found"
	case InvalidJSON:
		return "invalid JSON"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AnalysisError is returned by the Analyzer for every failure except configuration errors.
type AnalysisError struct {
	Kind Kind
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis failed: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("analysis failed: %s", e.Kind)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysisFailed }

// IsKind reports whether err is an *AnalysisError of kind k.
func IsKind(err error, k Kind) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Kind == k
}

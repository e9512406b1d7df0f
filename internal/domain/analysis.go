package domain

// DefaultCategory is the catch-all category ("other").
const DefaultCategory = "기타"

// Content types.
const (
	ContentTypeVideo   = "video"
	ContentTypeArticle = "article"
)

// AllowedCategories is the closed set of labels a category suggestion may take.
var AllowedCategories = []string{
	"기술", "개발", "프로그래밍", "뉴스", "엔터테인먼트", "음악", "게임",
	"교육", "강의", "쇼핑", "블로그", "문서", "레퍼런스", "커뮤니티",
	"금융", "건강", "여행", "음식", "스포츠", "과학", "예술", DefaultCategory,
}

var allowedCategorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(AllowedCategories))
	for _, c := range AllowedCategories {
		m[c] = struct{}{}
	}
	return m
}()

// IsAllowedCategory reports whether c is a member of AllowedCategories.
func IsAllowedCategory(c string) bool {
	_, ok := allowedCategorySet[c]
	return ok
}

// LinkAnalysis is the validated result of the enrichment step.
// CategorySuggestion is always a member of AllowedCategories.
type LinkAnalysis struct {
	Title              string   `json:"title"`
	Summary            string   `json:"summary"`
	Keywords           []string `json:"keywords"`
	CategorySuggestion string   `json:"categorySuggestion"`
	ContentType        string   `json:"contentType"`
}

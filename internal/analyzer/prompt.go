package analyzer

import (
	"fmt"
	"strings"

	"smartlink/internal/domain"
	"smartlink/internal/textutil"
)

const (
	// promptContentLength is how much page body the model ever sees.
	promptContentLength = 2000
	// rawContentLength bounds the caller-supplied raw text variant.
	rawContentLength = 3000
)

var systemPrompt = `당신은 웹 링크의 내용을 분석해 분류하는 도우미입니다.
주어진 정보를 바탕으로 아래 네 항목을 JSON 객체로만 답하세요.

## 참고 순서
1. 메타 정보 (제목, 설명, 키워드)
2. 영상 링크라면 영상 제목과 채널명
3. 페이지 본문
4. URL의 도메인과 경로

## 출력 항목
1. title: 핵심을 담은 짧은 제목 (한국어, 50자 이내)
2. summary: 2~3문장 요약 (한국어)
3. keywords: 관련 키워드 3~5개 배열 (한국어)
4. categorySuggestion: 다음 목록 중 정확히 하나: ` + strings.Join(domain.AllowedCategories, ", ") + `

## 규칙
- keywords 중 최소 하나는 위 카테고리 목록에 있는 값이어야 합니다.
- categorySuggestion은 keywords에 포함된 값 중 summary와 가장 가까운 것을 고르세요.
- 영상이라면 영상이 다루는 주제로 카테고리를 고르세요.
- 메타 키워드가 있으면 keywords를 만들 때 참고하세요.

코드 블록 없이 아래 형식의 JSON만 출력하세요:
{
  "title": "제목",
  "summary": "요약",
  "keywords": ["키워드1", "키워드2", "키워드3"],
  "categorySuggestion": "카테고리"
}`

// pageMessage assembles the user message from whatever the page carries,
// omitting sections for absent fields.
func pageMessage(page *domain.PageData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## URL\n%s\n", page.URL)

	b.WriteString("\n## 메타 정보\n")
	fmt.Fprintf(&b, "- 제목: %s\n", page.Title)
	if page.Description != "" {
		fmt.Fprintf(&b, "- 설명: %s\n", page.Description)
	}
	if page.SiteName != "" {
		fmt.Fprintf(&b, "- 사이트명: %s\n", page.SiteName)
	}
	if len(page.MetaKeywords) > 0 {
		fmt.Fprintf(&b, "- 메타 키워드: %s\n", strings.Join(page.MetaKeywords, ", "))
	}

	if page.Video != nil {
		b.WriteString("\n## 영상 정보\n")
		fmt.Fprintf(&b, "- 영상 제목: %s\n", page.Video.Title)
		fmt.Fprintf(&b, "- 채널명: %s\n", page.Video.Channel)
	}

	if page.Content != "" {
		fmt.Fprintf(&b, "\n## 페이지 본문 (발췌)\n%s\n", textutil.Truncate(page.Content, promptContentLength))
	}

	return strings.TrimRight(b.String(), "\n")
}

func rawContentMessage(url, content string) string {
	return fmt.Sprintf("다음 URL과 페이지 콘텐츠를 분석해주세요:\n\nURL: %s\n\n페이지 콘텐츠:\n%s",
		url, textutil.Truncate(content, rawContentLength))
}

func urlOnlyMessage(url string) string {
	return fmt.Sprintf("다음 URL을 분석해주세요:\n\nURL: %s", url)
}

// internal/index/index.go
package index

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

var (
	// href 값 전체가 *.log (+ optional query) 인 경우만 허용
	hrefLogPattern = regexp.MustCompile(`(?i)^[^"'<>]+\.log(?:\?[^"'<>]*)?$`)

	// 주석 / <script> 본문 안에 문자열로 들어 있는 href="..."
	embeddedHrefPattern = regexp.MustCompile(`(?i)\bhref\s*=\s*["']([^"'<>]+)["']`)

	// 문서 어디에든 평문으로 박혀 있는 절대 URL
	absoluteLogPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]+\.log(?:\?[^\s"'<>]*)?`)
)

// ExtractLogURLs
//
// 로그 디렉토리 인덱스 HTML 에서 로그 파일 링크를 찾아
// 절대 URL 목록으로 반환한다.
//
// 탐색 대상:
//  1. href 속성 (html tokenizer 로 읽으므로 &amp; 등 엔티티는 이미 decode 됨)
//     주석과 <script> 본문은 태그로 토큰화되지 않으므로 href="..." 문자열을 따로 찾는다
//  2. 문서 본문에 그대로 적힌 http(s)://....log URL
//
// 정렬 기준은 파일 base name (같으면 전체 URL) 이다.
// HTML 레이아웃이 바뀌어도 downstream 처리 순서가 흔들리지 않도록
// 발견 순서와 무관하게 정렬한다.
//
// 결과가 비어있어도 에러가 아니다. 0개를 치명적으로 볼지는 호출자가 정한다.
func ExtractLogURLs(doc string, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]struct{})
	add := func(candidate string) {
		u, ok := resolve(base, candidate)
		if !ok {
			return
		}
		seen[u] = struct{}{}
	}

	for _, href := range hrefValues(doc) {
		if hrefLogPattern.MatchString(href) {
			add(href)
		}
	}

	for _, m := range absoluteLogPattern.FindAllString(doc, -1) {
		add(strings.ReplaceAll(m, "&amp;", "&"))
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}

	sort.Slice(urls, func(i, j int) bool {
		bi, bj := BaseName(urls[i]), BaseName(urls[j])
		if bi != bj {
			return bi < bj
		}
		return urls[i] < urls[j]
	})

	return urls
}

// BaseName returns the last path element of a URL, used as the file label.
func BaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	return path.Base(u.Path)
}

// hrefValues 는 모든 start/self-closing 태그의 href 속성 값과
// 주석/텍스트(script 본문 포함) 안에 적힌 href="..." 값을 수집한다.
// 깨진 마크업이어도 tokenizer 는 끝까지 진행하므로 별도 에러 처리는 없다.
func hrefValues(doc string) []string {
	var out []string

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out

		case html.CommentToken, html.TextToken:
			for _, m := range embeddedHrefPattern.FindAllStringSubmatch(string(z.Text()), -1) {
				out = append(out, strings.ReplaceAll(strings.TrimSpace(m[1]), "&amp;", "&"))
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			_, hasAttr := z.TagName()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if strings.EqualFold(string(key), "href") {
					out = append(out, strings.TrimSpace(string(val)))
				}
			}
		}
	}
}

// resolve 는 candidate 를 base 기준 절대 URL 로 바꾼다.
// 파싱 실패 / 상대 경로인데 base 가 없는 경우는 조용히 버린다.
func resolve(base *url.URL, candidate string) (string, bool) {
	ref, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() {
		if base == nil {
			return "", false
		}
		ref = base.ResolveReference(ref)
	}
	if ref.Host == "" {
		return "", false
	}
	return ref.String(), true
}

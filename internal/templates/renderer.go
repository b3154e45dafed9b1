// internal/templates/renderer.go
// 郵件模板渲染 - 佔位符替換與共用外框

package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CompanyNameKey 簽名檔使用的變數名稱，由 handler 從設定注入
const CompanyNameKey = "company_name"

// defaultCompanyName 變數中沒有公司名稱時的簽名
const defaultCompanyName = "Company"

// Variables 模板變數 (值為字串、數字或布林)
type Variables map[string]any

// Rendered 渲染結果
type Rendered struct {
	Subject string
	HTML    string
}

// wrapperLayout 所有郵件共用的外框
// {{subject}} / {{content}} / {{company}} 由 wrap 以固定順序替換，不經過佔位符掃描
const wrapperLayout = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 20px auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
        .button { display: inline-block; padding: 10px 20px; background-color: #007bff; color: #fff; text-decoration: none; border-radius: 3px; }
        .footer { margin-top: 20px; font-size: 0.8em; color: #777; }
    </style>
</head>
<body>
    <div class="container">
{{content}}
        <div class="footer">
            <p>The {{company}} Team</p>
        </div>
    </div>
</body>
</html>
`

// Render 依模板 ID 產生主旨與完整 HTML
func Render(id ID, vars Variables) (*Rendered, error) {
	tmpl, err := Lookup(id)
	if err != nil {
		return nil, err
	}

	body, err := substitute(tmpl.Fragment, vars)
	if err != nil {
		var missing *MissingVariableError
		if errors.As(err, &missing) {
			missing.Template = id
		}
		return nil, err
	}

	subject := tmpl.Subject(vars)

	company := defaultCompanyName
	if v, ok := vars[CompanyNameKey]; ok {
		company = formatValue(v)
	}

	return &Rendered{
		Subject: subject,
		HTML:    wrap(subject, body, company),
	}, nil
}

// wrap 將內容片段嵌入共用外框
func wrap(subject, content, company string) string {
	// content 最後替換，避免片段內文字被當成外框標記
	head, tail, _ := strings.Cut(wrapperLayout, "{{content}}")
	head = strings.Replace(head, "{{subject}}", subject, 1)
	tail = strings.Replace(tail, "{{company}}", company, 1)

	var b strings.Builder
	b.Grow(len(head) + len(content) + len(tail))
	b.WriteString(head)
	b.WriteString(content)
	b.WriteString(tail)
	return b.String()
}

// substitute 以單次掃描替換 {name} 佔位符
// 替換後的值不會再被掃描；缺少的變數全部收集後一次回報
func substitute(fragment string, vars Variables) (string, error) {
	var b strings.Builder
	b.Grow(len(fragment))

	var missing []string
	i := 0
	for i < len(fragment) {
		open := strings.IndexByte(fragment[i:], '{')
		if open < 0 {
			b.WriteString(fragment[i:])
			break
		}
		open += i
		b.WriteString(fragment[i:open])

		name, end, ok := scanPlaceholder(fragment, open)
		if !ok {
			b.WriteByte('{')
			i = open + 1
			continue
		}

		if v, found := vars[name]; found {
			b.WriteString(formatValue(v))
		} else {
			missing = append(missing, name)
		}
		i = end
	}

	if len(missing) > 0 {
		return "", &MissingVariableError{Names: uniqueSorted(missing)}
	}
	return b.String(), nil
}

// scanPlaceholder 判斷 s[open] 開始是否為 {identifier}
// 回傳名稱與右括號之後的位置
func scanPlaceholder(s string, open int) (string, int, bool) {
	j := open + 1
	for j < len(s) && isIdentByte(s[j], j == open+1) {
		j++
	}
	if j == open+1 || j >= len(s) || s[j] != '}' {
		return "", 0, false
	}
	return s[open+1 : j], j + 1, true
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// placeholders 列出片段中出現的佔位符 (排序、不重複)
func placeholders(fragment string) []string {
	var names []string
	for i := 0; i < len(fragment); {
		open := strings.IndexByte(fragment[i:], '{')
		if open < 0 {
			break
		}
		open += i
		name, end, ok := scanPlaceholder(fragment, open)
		if !ok {
			i = open + 1
			continue
		}
		names = append(names, name)
		i = end
	}
	return uniqueSorted(names)
}

// formatValue 將變數值轉為字串
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func uniqueSorted(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	out := names[:1]
	for _, n := range names[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}

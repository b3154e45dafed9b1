// pkg/redact/email.go
// 日誌用的收件者遮罩

package redact

import "strings"

// Email 遮罩郵件地址
// "john.doe@example.com" -> "jo***@example.com"，帳號兩碼以下全部遮罩
func Email(addr string) string {
	name, domain, ok := strings.Cut(addr, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(name) > 2 {
		return name[:2] + "***@" + domain
	}
	return "***@" + domain
}

// Emails 遮罩多個地址並以逗號串接
func Emails(addrs []string) string {
	masked := make([]string, len(addrs))
	for i, a := range addrs {
		masked[i] = Email(a)
	}
	return strings.Join(masked, ", ")
}

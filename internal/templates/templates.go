// internal/templates/templates.go
// 郵件模板定義 - 四種業務情境

package templates

import "strings"

// ID 模板識別碼
type ID string

const (
	SubscriptionEnding ID = "subscription-ending"
	OptInConfirmation  ID = "opt-in-confirmation"
	Newsletter         ID = "newsletter"
	ProductLaunch      ID = "product-launch"
)

// Template 模板定義：主旨規則與內容片段
type Template struct {
	ID       ID
	Subject  func(vars Variables) string
	Fragment string
	// Required 片段以外呼叫端必須提供的變數 (例如只用於主旨的欄位)
	Required []string
}

// staticSubject 固定主旨
func staticSubject(subject string) func(Variables) string {
	return func(Variables) string { return subject }
}

// derivedSubject 從單一變數產生主旨，缺少或空白時使用 fallback
func derivedSubject(key, fallback, format string) func(Variables) string {
	return func(vars Variables) string {
		value := fallback
		if v, ok := vars[key]; ok {
			if s := formatValue(v); s != "" {
				value = s
			}
		}
		return strings.Replace(format, "%s", value, 1)
	}
}

var registry = map[ID]*Template{
	SubscriptionEnding: {
		ID:      SubscriptionEnding,
		Subject: staticSubject("Your Subscription is About to End — Renew Today!"),
		Fragment: `        <p>Hi {FirstName},</p>
        <p>We noticed your subscription to <strong>{ProductServiceName}</strong> is ending on <strong>{EndDate}</strong>. We’d hate to see you miss out on all the benefits — exclusive updates, premium content, and priority support.</p>
        <p>Renew now to continue uninterrupted access:</p>
        <p><a href="#" class="button">👉 Renew My Subscription</a></p>
        <p>If you’ve already renewed, thank you! Please disregard this message.</p>
        <p>Best regards,</p>`,
	},
	OptInConfirmation: {
		ID:      OptInConfirmation,
		Subject: staticSubject("Please Confirm Your Subscription"),
		Fragment: `        <p>Hi {FirstName},</p>
        <p>Thanks for your interest in {company_name}!</p>
        <p>To make sure we’ve got your permission, please confirm your subscription by clicking the button below:</p>
        <p><a href="#" class="button">✅ Confirm My Subscription</a></p>
        <p>Once confirmed, you’ll receive updates on our latest offers, news, and insights.</p>
        <p>If you didn’t request this, simply ignore this email.</p>
        <p>Warm regards,</p>`,
	},
	Newsletter: {
		ID:       Newsletter,
		Subject:  derivedSubject("Month", "This Month", "%s Highlights – News, Tips & What's Next!"),
		Required: []string{"Month"},
		Fragment: `        <p>Hello {FirstName},</p>
        <p>Here’s what’s new this month at {company_name}:</p>
        <h4>📰 In the Spotlight: {Headline1}</h4>
        <p><i>A brief description or introduction to the main headline can go here, expanding on the topic.</i></p>
        <h4>💡 Pro Tip: {TipOrInsight}</h4>
        <p><i>Elaborate on the tip, providing actionable advice your readers can use.</i></p>
        <h4>📅 Upcoming Event: {EventName} on {EventDate}</h4>
        <p><i>Give some more details about the event and why people should be excited to attend or participate.</i></p>
        <h4>🎁 Exclusive Offer: {OfferDetails}</h4>
        <p><i>Explain the offer in more detail and create a sense of urgency or exclusivity.</i></p>
        <p>Stay tuned for more updates and insights in next month’s edition!</p>
        <p>Cheers,</p>`,
	},
	ProductLaunch: {
		ID:      ProductLaunch,
		Subject: derivedSubject("ProductName", "Product", "Introducing Our New %s – It's Finally Here! 🚀"),
		Fragment: `        <p>Hi {FirstName},</p>
        <p>We’re thrilled to announce the launch of our latest innovation — <strong>{ProductName}</strong>!</p>
        <p>Designed to {ProductBenefit}, this is a game-changer you won’t want to miss.</p>
        <h4>✨ Key Features:</h4>
        <ul>
            <li>{Feature1}</li>
            <li>{Feature2}</li>
            <li>{Feature3}</li>
        </ul>
        <p><a href="#" class="button">Be among the first to experience it → Learn More / Buy Now</a></p>
        <p>Thank you for being part of our journey!</p>`,
	},
}

// Lookup 取得模板定義
func Lookup(id ID) (*Template, error) {
	tmpl, ok := registry[id]
	if !ok {
		return nil, &UnknownTemplateError{ID: id}
	}
	return tmpl, nil
}

// IDs 回傳所有模板 ID
func IDs() []ID {
	return []ID{SubscriptionEnding, OptInConfirmation, Newsletter, ProductLaunch}
}

// RequiredVariables 回傳 API 呼叫端必須提供的變數 (不含由設定注入的 company_name)
// 包含片段中的佔位符與 Template.Required；Render 本身對主旨欄位仍使用預設值
func RequiredVariables(id ID) ([]string, error) {
	tmpl, err := Lookup(id)
	if err != nil {
		return nil, err
	}

	var required []string
	for _, name := range placeholders(tmpl.Fragment) {
		if name != CompanyNameKey {
			required = append(required, name)
		}
	}
	required = append(required, tmpl.Required...)
	return uniqueSorted(required), nil
}

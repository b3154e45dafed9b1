package templates

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeVariables(id ID) Variables {
	vars := Variables{CompanyNameKey: "Acme Corp"}
	switch id {
	case SubscriptionEnding:
		vars["FirstName"] = "Alex"
		vars["ProductServiceName"] = "Pro Plan"
		vars["EndDate"] = "October 31, 2025"
	case OptInConfirmation:
		vars["FirstName"] = "Casey"
	case Newsletter:
		vars["FirstName"] = "Jordan"
		vars["Month"] = "October"
		vars["Headline1"] = "Our Biggest Update Yet!"
		vars["TipOrInsight"] = "You can now sync your data across devices seamlessly."
		vars["EventName"] = "Annual Tech Summit"
		vars["EventDate"] = "November 15, 2025"
		vars["OfferDetails"] = "Get 20% off on all annual plans this month."
	case ProductLaunch:
		vars["FirstName"] = "Sam"
		vars["ProductName"] = "SyncMaster 5000"
		vars["ProductBenefit"] = "automate your workflow like never before"
		vars["Feature1"] = "AI-Powered Suggestions"
		vars["Feature2"] = "One-Click Cloud Backup"
		vars["Feature3"] = "Real-time Collaboration"
	}
	return vars
}

func TestRender_AllTemplatesComplete(t *testing.T) {
	for _, id := range IDs() {
		t.Run(string(id), func(t *testing.T) {
			vars := completeVariables(id)

			out, err := Render(id, vars)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(out.HTML, "<!DOCTYPE html>"))
			assert.Contains(t, out.HTML, "<title>"+out.Subject+"</title>")
			assert.Contains(t, out.HTML, "<p>The Acme Corp Team</p>")
			assert.Contains(t, out.HTML, "<style>")
			for key, value := range vars {
				assert.Contains(t, out.HTML, value.(string), "value of %s not rendered", key)
			}
			assert.NotRegexp(t, `\{[A-Za-z_][A-Za-z0-9_]*\}`, out.HTML)
		})
	}
}

func TestRender_MissingVariable(t *testing.T) {
	for _, id := range IDs() {
		t.Run(string(id), func(t *testing.T) {
			vars := completeVariables(id)
			delete(vars, "FirstName")

			out, err := Render(id, vars)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, ErrMissingVariable))

			var missing *MissingVariableError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, id, missing.Template)
			assert.Equal(t, []string{"FirstName"}, missing.Names)
		})
	}
}

func TestRender_MissingVariablesReportedSorted(t *testing.T) {
	_, err := Render(Newsletter, Variables{"FirstName": "Jordan", CompanyNameKey: "Acme"})

	var missing *MissingVariableError
	require.ErrorAs(t, err, &missing)
	// Month 只用於主旨，渲染時使用預設值，由 RequiredVariables 在 API 端要求
	assert.Equal(t, []string{"EventDate", "EventName", "Headline1", "OfferDetails", "TipOrInsight"}, missing.Names)
	assert.Contains(t, err.Error(), `"newsletter"`)
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := Render(ID("welcome"), Variables{})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestRender_NewsletterSubject(t *testing.T) {
	vars := completeVariables(Newsletter)
	out, err := Render(Newsletter, vars)
	require.NoError(t, err)
	assert.Equal(t, "October Highlights – News, Tips & What's Next!", out.Subject)

	subject := registry[Newsletter].Subject(Variables{})
	assert.Equal(t, "This Month Highlights – News, Tips & What's Next!", subject)

	subject = registry[Newsletter].Subject(Variables{"Month": ""})
	assert.Equal(t, "This Month Highlights – News, Tips & What's Next!", subject)
}

func TestRender_NewsletterWithoutMonthUsesFallback(t *testing.T) {
	vars := completeVariables(Newsletter)
	delete(vars, "Month")

	out, err := Render(Newsletter, vars)
	require.NoError(t, err)
	assert.Equal(t, "This Month Highlights – News, Tips & What's Next!", out.Subject)
}

func TestRender_ProductLaunchSubject(t *testing.T) {
	out, err := Render(ProductLaunch, completeVariables(ProductLaunch))
	require.NoError(t, err)
	assert.Contains(t, out.Subject, "SyncMaster 5000")

	subject := registry[ProductLaunch].Subject(Variables{})
	assert.Contains(t, subject, "Introducing Our New Product")
}

func TestRender_StaticSubjects(t *testing.T) {
	out, err := Render(OptInConfirmation, completeVariables(OptInConfirmation))
	require.NoError(t, err)
	assert.Equal(t, "Please Confirm Your Subscription", out.Subject)
	assert.Contains(t, out.HTML, "Hi Casey,")
	assert.Contains(t, out.HTML, "Thanks for your interest in Acme Corp!")

	out, err = Render(SubscriptionEnding, completeVariables(SubscriptionEnding))
	require.NoError(t, err)
	assert.Equal(t, "Your Subscription is About to End — Renew Today!", out.Subject)
}

func TestRender_DefaultCompanyName(t *testing.T) {
	vars := completeVariables(SubscriptionEnding)
	delete(vars, CompanyNameKey)

	out, err := Render(SubscriptionEnding, vars)
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "<p>The Company Team</p>")
}

func TestRender_ScalarFormatting(t *testing.T) {
	vars := completeVariables(ProductLaunch)
	vars["Feature1"] = float64(5)
	vars["Feature2"] = 2.5
	vars["Feature3"] = true

	out, err := Render(ProductLaunch, vars)
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "<li>5</li>")
	assert.Contains(t, out.HTML, "<li>2.5</li>")
	assert.Contains(t, out.HTML, "<li>true</li>")
}

func TestSubstitute_ValuesAreNotRescanned(t *testing.T) {
	out, err := substitute("<p>{A}</p>", Variables{"A": "{B}"})
	require.NoError(t, err)
	assert.Equal(t, "<p>{B}</p>", out)
}

func TestSubstitute_IgnoresNonIdentifierBraces(t *testing.T) {
	fragment := "a { b } {1x} {} {ok"
	out, err := substitute(fragment, Variables{})
	require.NoError(t, err)
	assert.Equal(t, fragment, out)
}

func TestRequiredVariables(t *testing.T) {
	tests := []struct {
		id   ID
		want []string
	}{
		{SubscriptionEnding, []string{"EndDate", "FirstName", "ProductServiceName"}},
		{OptInConfirmation, []string{"FirstName"}},
		{Newsletter, []string{"EventDate", "EventName", "FirstName", "Headline1", "Month", "OfferDetails", "TipOrInsight"}},
		{ProductLaunch, []string{"Feature1", "Feature2", "Feature3", "FirstName", "ProductBenefit", "ProductName"}},
	}

	for _, tt := range tests {
		got, err := RequiredVariables(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, string(tt.id))
	}

	_, err := RequiredVariables("nope")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestRender_ConcurrentCallsDoNotInterfere(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := IDs()[i%len(IDs())]
			vars := completeVariables(id)
			name := fmt.Sprintf("User%03d", i)
			vars["FirstName"] = name

			out, err := Render(id, vars)
			if err != nil {
				errs <- err
				return
			}
			if strings.Count(out.HTML, "User") != 1 || !strings.Contains(out.HTML, name+",") {
				errs <- fmt.Errorf("render %d leaked foreign data", i)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

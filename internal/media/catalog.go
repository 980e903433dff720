// Package media holds the static learning-video catalog and the keyword
// lookup that attaches related videos to answers.
package media

import (
	"strings"

	"chat-widget/internal/domain"
)

var catalog = []domain.MediaRef{
	{
		ID:          "first-assignment",
		Keywords:    "#GettingStarted, #Onboarding, #EMR, #Logistics",
		Title:       "What I Wish I Knew Before My First Locums Assignment",
		Description: "Ask questions early, from EMR to parking. Small details make a big difference.",
		Speaker:     "Dr. Emmett Mathews · Internal Medicine · Arizona",
		Source:      "drMatthews.mp4",
	},
	{
		ID:          "why-locums",
		Keywords:    "#CareerChange, #Motivation, #Flexibility",
		Title:       "Why I Chose Locums Work",
		Description: "Locums gave me space to breathe again. It reminded me why I started medicine.",
		Speaker:     "Dr. Andrea Hope · Anesthesiology · Colorado",
		Source:      "drHope.mp4",
	},
	{
		ID:          "how-pay-works",
		Keywords:    "#Pay, #1099, #Compensation, #Rates",
		Title:       "How Pay Works with Locums",
		Description: "Most locums pay per shift or per hour, but remember, it's all 1099.",
		Speaker:     "Dr. Anna Waltz · Emergency Medicine · Texas",
		Source:      "drWaltz.mp4",
	},
	{
		ID:          "work-life-balance",
		Keywords:    "#Lifestyle, #Flexibility, #Scheduling, #Burnout",
		Title:       "Balancing Locums with My Personal Life",
		Description: "I schedule months in advance. That's how I build in rest and family time.",
		Speaker:     "Dr. John Andrade · Hospitalist · Oregon",
		Source:      "drAndrade.mp4",
	},
	{
		ID:          "taxes-benefits",
		Keywords:    "#Taxes, #1099, #Retirement, #FinancialPlanning",
		Title:       "Handling Taxes and Benefits as a Locum",
		Description: "I treat it like a business: separate account, CPA, solo 401(k). It works.",
		Speaker:     "Dr. Fatima Khan · OB/GYN · New York",
		Source:      "drKhan.mp4",
	},
	{
		ID:          "new-facility",
		Keywords:    "#NewSites, #TeamDynamics, #FirstDay, #Adaptability",
		Title:       "Tips for Adapting to a New Facility Fast",
		Description: "Arrive early, introduce yourself, and ask for a quick orientation, even informal.",
		Speaker:     "Dr. May Chen · Family Medicine · Georgia",
		Source:      "drChen.mp4",
	},
	{
		ID:          "credentialing",
		Keywords:    "#Credentialing, #Paperwork, #Admin, #Licensure",
		Title:       "Dealing with Paperwork & Credentialing",
		Description: "Keep a folder with all your documents. Fast responses = faster onboarding.",
		Speaker:     "Dr. Carson Stevens · Pediatrics · California",
		Source:      "drStevens.mp4",
	},
}

// Catalog returns a copy of every video, in display order.
func Catalog() []domain.MediaRef {
	out := make([]domain.MediaRef, len(catalog))
	copy(out, catalog)
	return out
}

// Related returns the catalog entries whose keywords appear in question.
func Related(question string) []domain.MediaRef {
	return Match(catalog, question)
}

// Match reports which refs have at least one keyword contained in question.
// Keywords are comma separated; '#' is stripped and comparison ignores case.
func Match(refs []domain.MediaRef, question string) []domain.MediaRef {
	q := strings.ToLower(question)
	var out []domain.MediaRef
	for _, ref := range refs {
		if matches(ref.Keywords, q) {
			out = append(out, ref)
		}
	}
	return out
}

func matches(keywords, lowerQuestion string) bool {
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(kw, "#", "")))
		if kw == "" {
			continue
		}
		if strings.Contains(lowerQuestion, kw) {
			return true
		}
	}
	return false
}

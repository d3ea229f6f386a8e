package reports

import (
	"fmt"
	"strings"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/analytics"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/llm"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/money"
)

const (
	reportMaxTokens = 1500
	promptTopItems  = 5
	promptTopStaff  = 3
	weekLabelLayout = "Jan 2, 2006"
)

const systemPrompt = `You are Tavernbuddy, an AI analyst for bars and pubs. You write weekly business reports that are friendly, specific and actionable, like advice from a savvy friend who happens to know everything about the bar's numbers. Always use specific numbers from the data. Be conversational but professional. Use "you" and "your bar." Keep it punchy with no fluff.`

// Sections are the headings every weekly report is asked to use, in order.
var Sections = []string{
	"What happened last week",
	"What's working",
	"What to fix",
	"Weekend forecast",
}

var sectionBriefs = []string{
	"2-3 sentences on overall performance vs the prior four weeks",
	"top items and staff highlights with specific numbers",
	"1-2 specific, actionable recommendations based on the data",
	"based on patterns in the data, what to expect and prep for",
}

// BuildPrompt renders the weekly report request for one bar.
func BuildPrompt(barName string, m analytics.Metrics) llm.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a weekly business report for %s based on this data:\n\n", barName)
	fmt.Fprintf(&b, "WEEK: %s to %s\n\n", m.Window.Start.Format(weekLabelLayout), m.Window.LastDay().Format(weekLabelLayout))

	b.WriteString("OVERALL:\n")
	fmt.Fprintf(&b, "- Total Revenue: %s (%+.1f%% vs the prior 4-week weekly average)\n", money.FormatCents(m.Revenue), m.RevenueChange)
	fmt.Fprintf(&b, "- Transactions: %d\n", m.Transactions)
	fmt.Fprintf(&b, "- Average Tab: %s\n", money.FormatCents(m.AvgTransaction))
	fmt.Fprintf(&b, "- Previous 4-week avg tab: %s (%+.1f%%)\n\n", money.FormatCents(m.ComparisonAvgTransaction), m.AvgTransactionChange)

	b.WriteString("TOP ITEMS BY REVENUE:\n")
	for i, it := range m.TopItems {
		if i == promptTopItems {
			break
		}
		fmt.Fprintf(&b, "- %s: %s (%d sold)\n", it.Name, money.FormatCents(it.Revenue), it.Quantity)
	}

	b.WriteString("\nTOP STAFF BY AVG TAB:\n")
	for i, st := range m.TopStaff {
		if i == promptTopStaff {
			break
		}
		fmt.Fprintf(&b, "- %s: %s avg tab (%d orders)\n", st.Name, money.FormatCents(st.AvgTransaction), st.Transactions)
	}

	b.WriteString("\nREVENUE BY DAY:\n")
	for _, d := range m.RevenueByDay {
		fmt.Fprintf(&b, "- %s: %s (%d transactions)\n", d.Label, money.FormatCents(d.Revenue), d.Transactions)
	}

	if len(m.RevenueByHour) > 0 {
		b.WriteString("\nREVENUE BY HOUR:\n")
		for _, h := range m.RevenueByHour {
			fmt.Fprintf(&b, "- %02d:00: %s (%d transactions)\n", h.Hour, money.FormatWholeCents(h.Revenue), h.Transactions)
		}
	}

	b.WriteString("\nWrite the report with these EXACT sections (use HTML formatting):\n\n")
	for i, s := range Sections {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, s, sectionBriefs[i])
	}
	b.WriteString("\nFormat as clean HTML with: h2 for section titles, p tags for paragraphs, strong for key numbers. " +
		"No CSS classes needed, just semantic HTML. Start directly with the first h2, no intro paragraph.")

	return llm.Prompt{System: systemPrompt, User: b.String(), MaxTokens: reportMaxTokens}
}

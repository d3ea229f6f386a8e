package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/analytics"
)

func TestStripTags(t *testing.T) {
	in := "<h2>What to fix</h2>\n<p>Tuesdays&nbsp;are <strong>slow</strong> &lt;30 tabs&gt; &amp; quiet.<br/>Try trivia.</p>"
	assert.Equal(t, "What to fix\n\nTuesdays are slow <30 tabs> & quiet.\nTry trivia.", StripTags(in))
}

func TestSplitSections(t *testing.T) {
	cards := splitSections("  <h2>One</h2><p>a</p>\n<H2 class=\"x\">Two</H2><p>b</p><h2>Three</h2>")
	require.Len(t, cards, 3)
	assert.Equal(t, "<h2>One</h2><p>a</p>", string(cards[0]))
	assert.True(t, strings.HasPrefix(string(cards[1]), "<H2 class"))
	assert.Equal(t, "<h2>Three</h2>", string(cards[2]))

	assert.Empty(t, splitSections("   "))
}

func TestRenderEmailEscapesBarName(t *testing.T) {
	out, err := renderEmail(emailData{BarName: "<Joe's>", WeekStart: "Mar 3, 2025", WeekEnd: "Mar 9, 2025"}, "<h2>Hi</h2>")
	require.NoError(t, err)
	assert.Contains(t, out, "Hey &lt;Joe&#39;s&gt;,")
	assert.Contains(t, out, `<div class="card"><h2>Hi</h2></div>`)
	assert.Contains(t, out, "Week of Mar 3, 2025 to Mar 9, 2025")
}

func TestBuildPromptListsEverySection(t *testing.T) {
	week := analytics.DateWindow(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC))
	p := BuildPrompt("The Anchor", analytics.SampleWeeklyMetrics(week))

	assert.Equal(t, reportMaxTokens, p.MaxTokens)
	assert.Contains(t, p.System, "You are Tavernbuddy")
	for i, s := range Sections {
		assert.Contains(t, p.User, s, "section %d", i)
	}
	assert.Contains(t, p.User, "- Total Revenue: $18,475.00 (+12.3% vs the prior 4-week weekly average)")
	assert.Contains(t, p.User, "- Marcus T.: $48.50 avg tab (148 orders)")
	assert.Contains(t, p.User, "- Mon Mar 3: $1,820.00 (47 transactions)")
	assert.Contains(t, p.User, "- 19:00: $3,120 (81 transactions)")
}

package browsertest

import (
	"fmt"
	"html"
	"strings"
)

// Row is one chart entry as the site renders it. Empty fields are omitted
// from the markup, which is how the site shows missing data.
type Row struct {
	Title       string
	Href        string
	Views       string
	Thumb       string // background-image style value
	Channel     string
	Subscribers string
}

// ChartHTML renders the first visible rows in the chart site's markup.
// extra is appended to the body (challenge widgets, etc.).
func ChartHTML(rows []Row, visible int, extra string) string {
	if visible > len(rows) {
		visible = len(rows)
	}
	var b strings.Builder
	b.WriteString("<html><body><table class=\"chart\"><tbody>\n")
	for _, r := range rows[:visible] {
		b.WriteString("<tr class=\"chart__row\">")
		b.WriteString("<td class=\"thumb\"><div class=\"thumb-wrapper image\">")
		if r.Thumb != "" {
			fmt.Fprintf(&b, "<div class=\"thumb lazy-image\" data-background-image=\"%s\"></div>", html.EscapeString(r.Thumb))
		}
		b.WriteString("</div></td>")
		fmt.Fprintf(&b, "<td class=\"title\"><a class=\"title__label\" href=\"%s\">%s</a></td>", html.EscapeString(r.Href), html.EscapeString(r.Title))
		if r.Views != "" {
			fmt.Fprintf(&b, "<td class=\"score\"><span class=\"fluc-label\">%s</span></td>", html.EscapeString(r.Views))
		}
		b.WriteString("<td class=\"channel\">")
		if r.Channel != "" {
			fmt.Fprintf(&b, "<a href=\"/channel/x\"><span class=\"name\">%s</span></a>", html.EscapeString(r.Channel))
		}
		if r.Subscribers != "" {
			fmt.Fprintf(&b, "<div class=\"subs\"><span class=\"subs__count\">%s</span></div>", html.EscapeString(r.Subscribers))
		}
		b.WriteString("</td></tr>\n")
	}
	b.WriteString("</tbody></table>")
	b.WriteString(extra)
	b.WriteString("</body></html>")
	return b.String()
}

// Growing renders a chart that reveals initial rows and step more per scroll.
func Growing(rows []Row, initial, step int, extra func(scrolls int) string) Render {
	return func(url string, scrolls int) string {
		x := ""
		if extra != nil {
			x = extra(scrolls)
		}
		return ChartHTML(rows, initial+step*scrolls, x)
	}
}

// Package notify renders state-transition events and delivers them to
// Telegram.
package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// maxMessageLen stays under Telegram's 4096-char limit with headroom for
// entity encoding.
const maxMessageLen = 3900

const maxSpecBullets = 15

// specPriority orders spec bullets so the most decision-relevant lines
// survive truncation.
var specPriority = []string{
	"CPU", "RAM", "Memory", "Disk", "Storage", "SSD", "NVMe",
	"Bandwidth", "Traffic", "Transfer", "Network", "Port", "IPv4", "IPv6",
	"Location", "Virtualization", "OS",
}

var kindTags = map[stock.EventKind]string{
	stock.EventNewProduct:  "🆕 New Product",
	stock.EventRestock:     "🔄 Restock",
	stock.EventNewLocation: "📍 New Location",
}

var statusLines = map[stock.Status]string{
	stock.StatusInStock:    "✅ In Stock",
	stock.StatusOutOfStock: "❌ Out of Stock",
	stock.StatusUnknown:    "❔ Status Unknown",
}

// Render produces the Telegram HTML message for one event.
func Render(ev stock.Event) string {
	l := ev.Listing
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s</b> #%s\n", kindTags[ev.Kind], hashtag(l.Domain))
	if l.Title != "" {
		fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(l.Title))
	}
	b.WriteString(statusLines[l.Status])
	b.WriteString("\n")

	if !l.Price.IsZero() {
		line := l.Price.Amount
		if l.Price.Currency != "" {
			line += " " + l.Price.Currency
		}
		if l.Price.BillingCycle != "" {
			line += " / " + l.Price.BillingCycle
		}
		fmt.Fprintf(&b, "💰 %s\n", html.EscapeString(line))
	}

	for _, line := range specBullets(l.Specs) {
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(line))
	}

	if len(l.Locations) > 0 {
		fmt.Fprintf(&b, "🌐 %s\n", html.EscapeString(strings.Join(l.Locations, ", ")))
	}
	if l.PurchaseURL != "" {
		fmt.Fprintf(&b, "<a href=\"%s\">Buy</a>\n", html.EscapeString(l.PurchaseURL))
	}
	fmt.Fprintf(&b, "<i>%s</i>", ev.DetectedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	return truncate(b.String(), maxMessageLen)
}

// specBullets orders spec lines by priority, then alphabetically for keys
// outside the priority list, capped at maxSpecBullets.
func specBullets(specs map[string]string) []string {
	if len(specs) == 0 {
		return nil
	}

	used := make(map[string]bool, len(specs))
	var lines []string
	for _, want := range specPriority {
		for _, k := range stock.SortedKeys(specs) {
			if used[k] || !strings.EqualFold(k, want) {
				continue
			}
			used[k] = true
			lines = append(lines, k+": "+specs[k])
		}
	}
	for _, k := range stock.SortedKeys(specs) {
		if !used[k] {
			lines = append(lines, k+": "+specs[k])
		}
	}

	if len(lines) > maxSpecBullets {
		lines = lines[:maxSpecBullets]
	}
	return lines
}

func hashtag(domain string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(domain)
}

// truncate cuts at a rune boundary so a multi-byte character is never split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	for len(string(runes)) > max {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

// Selectors that usually wrap one product offering on hosting storefronts.
var cardSelectors = []string{
	"div.package",
	"div.product",
	"div.plan",
	"div.pricing-table",
	"div.pricing-item",
	"div.price-box",
	"div.card.product-card",
	"li.package",
	"li.product",
	"div[class*='product-item']",
	"div[class*='plan-box']",
	"div[class*='package-box']",
}

var titleSelectors = []string{
	"h1", "h2", "h3", "h4",
	".package-name", ".product-name", ".plan-name", ".card-title", ".title",
}

// URL fragments that never lead to product pages. Links containing any of
// these are skipped during discovery harvesting.
var nonProductFragments = []string{
	"logout", "login", "register", "password", "pwreset",
	"clientarea", "submitticket", "supporttickets", "knowledgebase",
	"announcements", "serverstatus", "affiliates", "contact",
	"terms", "privacy", "legal", "about",
	"downloads", "networkissues", "creditcard", "invoice",
	"domainchecker", "domain-checker", "whois",
	"javascript:", "mailto:", "tel:",
	".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico",
	".pdf", ".zip", ".xml", ".txt",
	"#",
}

// Purchase-action URL markers, checked against the query and path.
var purchaseURLMarkers = []string{
	"a=add", "pid=", "cmd=cart", "action=add", "/order/", "addtocart",
	"/cart.php", "/cart/", "rp=/store", "/store/",
}

// Generic extracts candidates from arbitrary storefront HTML using common
// layout patterns. It is the registry fallback for domains without a
// dedicated parser.
type Generic struct{}

func NewGeneric() *Generic { return &Generic{} }

// Normalize parses the page body and extracts product candidates plus
// in-domain links worth visiting. A page with no recognizable cards but a
// clear single-product shape yields one whole-page candidate.
func (g *Generic) Normalize(page stock.Page) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return Result{}
	}

	base := page.FinalURL
	if base == "" {
		base = page.URL
	}

	var res Result
	seen := make(map[string]bool)

	for _, sel := range cardSelectors {
		doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
			// Skip containers that wrap other cards.
			if card.Find(strings.Join(cardSelectors, ", ")).Length() > 0 {
				return
			}
			if c, ok := candidateFromNode(card, base); ok {
				key := c.Title + "|" + c.PurchaseURL
				if !seen[key] {
					seen[key] = true
					res.Candidates = append(res.Candidates, c)
				}
			}
		})
		if len(res.Candidates) > 0 {
			break
		}
	}

	if len(res.Candidates) == 0 {
		if c, ok := wholePageCandidate(doc, base); ok {
			res.Candidates = append(res.Candidates, c)
		}
	}

	res.Links = harvestLinks(doc, base)
	return res
}

func candidateFromNode(node *goquery.Selection, base string) (Candidate, bool) {
	text := compactWS(node.Text())
	if text == "" {
		return Candidate{}, false
	}

	c := Candidate{
		Title:      extractTitle(node),
		SpecText:   text,
		Specs:      extractSpecs(node),
		StatusHint: ExtractAvailability(text),
		Price:      ExtractPrice(text),
	}
	c.PurchaseURL = extractPurchaseURL(node, base)

	if c.Title == "" && c.PurchaseURL == "" {
		return Candidate{}, false
	}
	// A bare heading with no price, status, or order link is navigation, not
	// a product.
	if c.PurchaseURL == "" && c.Price.Amount == "" && c.StatusHint == stock.StatusUnknown {
		return Candidate{}, false
	}
	return c, true
}

func extractTitle(node *goquery.Selection) string {
	for _, sel := range titleSelectors {
		if t := compactWS(node.Find(sel).First().Text()); t != "" && len(t) <= 200 {
			return t
		}
	}
	return ""
}

// extractSpecs pulls key:value rows from list items and table rows.
func extractSpecs(node *goquery.Selection) map[string]string {
	specs := make(map[string]string)

	node.Find("li, tr, .feature, .spec").Each(func(_ int, row *goquery.Selection) {
		line := compactWS(row.Text())
		if line == "" || len(line) > 160 {
			return
		}
		for _, sep := range []string{":", "："} {
			if idx := strings.Index(line, sep); idx > 0 {
				k := compactWS(line[:idx])
				v := compactWS(line[idx+len(sep):])
				if k != "" && v != "" && len(k) <= 40 {
					if _, dup := specs[k]; !dup {
						specs[k] = v
					}
				}
				return
			}
		}
	})

	if len(specs) == 0 {
		return nil
	}
	return specs
}

func extractPurchaseURL(node *goquery.Selection, base string) string {
	var found string
	node.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		abs := resolveURL(base, href)
		if abs == "" {
			return true
		}
		if isPurchaseURL(abs) || LooksLikePurchaseAction(a.Text()) {
			found = abs
			return false
		}
		return true
	})
	return found
}

func isPurchaseURL(raw string) bool {
	l := strings.ToLower(raw)
	for _, marker := range purchaseURLMarkers {
		if strings.Contains(l, marker) {
			return true
		}
	}
	return false
}

// wholePageCandidate treats a card-less page as a single product detail page
// when it carries an order affordance or an explicit stock signal.
func wholePageCandidate(doc *goquery.Document, base string) (Candidate, bool) {
	body := doc.Find("body")
	text := compactWS(body.Text())
	if text == "" {
		return Candidate{}, false
	}

	status := ExtractAvailability(text)
	purchase := extractPurchaseURL(body, base)
	if status == stock.StatusUnknown && purchase == "" {
		return Candidate{}, false
	}

	title := compactWS(doc.Find("h1").First().Text())
	if title == "" {
		title = compactWS(doc.Find("title").First().Text())
	}
	if title == "" {
		return Candidate{}, false
	}

	if purchase == "" {
		purchase = base
	}
	return Candidate{
		Title:       title,
		SpecText:    text,
		Specs:       extractSpecs(body),
		StatusHint:  status,
		Price:       ExtractPrice(text),
		PurchaseURL: purchase,
	}, true
}

// harvestLinks collects same-domain links that may lead to product pages.
func harvestLinks(doc *goquery.Document, base string) []string {
	domain := stock.DomainOf(base)
	if domain == "" {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := resolveURL(base, href)
		if abs == "" || stock.DomainOf(abs) != domain {
			return
		}
		if isNonProductURL(abs) {
			return
		}
		norm, err := stock.NormalizeURL(abs)
		if err != nil {
			return
		}
		if !seen[norm] {
			seen[norm] = true
			links = append(links, norm)
		}
	})
	return links
}

func isNonProductURL(raw string) bool {
	l := strings.ToLower(raw)
	for _, frag := range nonProductFragments {
		if strings.Contains(l, frag) {
			return true
		}
	}
	return false
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

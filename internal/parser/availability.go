package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

var oosWords = []string{
	"out of stock",
	"sold out",
	"unavailable",
	"no stock",
	"out-of-stock",
	"sold-out",
	"not available",
	"已售罄",
	"售罄",
	"缺货",
	"無庫存",
	"无库存",
	"暂时缺货",
	"庫存不足",
	"库存不足",
}

var inStockWordsStrong = []string{
	"in stock",
	"instock",
	"available now",
	"有库存",
	"有庫存",
	"库存充足",
	"庫存充足",
}

// Purchase/action labels appear on both in-stock and out-of-stock pages
// (often as a disabled button), so they are a weak hint only.
var inStockWordsWeak = []string{
	"add to cart",
	"order now",
	"buy now",
	"加入购物车",
	"加入購物車",
	"立即购买",
	"立即購買",
	"立即订购",
	"立即訂購",
}

var (
	availCountRe = regexp.MustCompile(`(?i)(\d+)\s*(?:available|left|in\s*stock|库存|庫存|可用)`)
	availKVRe    = regexp.MustCompile(`(?i)(?:stock|inventory|available|left|库存|庫存|可用)\s*[:：]?\s*(-?\d+)`)
)

// ExtractAvailability infers a status hint from visible text. Explicit stock
// counters win; otherwise the out-of-stock word list beats the strong
// in-stock list, and weak purchase labels alone resolve to unknown.
func ExtractAvailability(text string) stock.Status {
	t := strings.ToLower(compactWS(text))

	var counts []int
	for _, m := range availKVRe.FindAllStringSubmatch(t, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			counts = append(counts, n)
		}
	}
	for _, m := range availCountRe.FindAllStringSubmatch(t, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			counts = append(counts, n)
		}
	}
	if len(counts) > 0 {
		hasPos, hasZero := false, false
		for _, n := range counts {
			if n > 0 {
				hasPos = true
			} else {
				hasZero = true
			}
		}
		if hasPos && !hasZero {
			return stock.StatusInStock
		}
		if hasZero && !hasPos {
			return stock.StatusOutOfStock
		}
	}

	hasOOS := containsAny(t, oosWords)
	hasStrong := containsAny(t, inStockWordsStrong)
	switch {
	case hasOOS && hasStrong:
		return stock.StatusUnknown
	case hasOOS:
		return stock.StatusOutOfStock
	case hasStrong:
		return stock.StatusInStock
	default:
		return stock.StatusUnknown
	}
}

// LooksLikePurchaseAction reports whether text is an order/cart affordance.
func LooksLikePurchaseAction(text string) bool {
	t := strings.ToLower(compactWS(text))
	return t != "" && containsAny(t, inStockWordsWeak)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

var wsRe = regexp.MustCompile(`\s+`)

func compactWS(text string) string {
	return wsRe.ReplaceAllString(strings.TrimSpace(text), " ")
}

package hiddenscan

import (
	"fmt"
	"regexp"
	"strings"
)

// axis is one numeric id space to sweep on a storefront.
type axis struct {
	name     string
	template string
	// group axes enumerate category pages whose links reveal primary ids.
	group bool
	// group pages repeat the same shell quickly, so they get a tighter
	// duplicate budget.
	sameLimit int
}

func (a axis) probeURL(domain string, id int) string {
	return fmt.Sprintf("https://"+domain+a.template, id)
}

const groupSameLimit = 20

var whmcsAxes = []axis{
	{name: "pid", template: "/cart.php?a=add&pid=%d"},
	{name: "gid", template: "/cart.php?gid=%d", group: true, sameLimit: groupSameLimit},
}

var hostbillAxes = []axis{
	{name: "id", template: "/?cmd=cart&action=add&id=%d"},
	{name: "fid", template: "/?cmd=cart&fid=%d", group: true, sameLimit: groupSameLimit},
}

var whmcsMarkers = []string{"cart.php", "whmcs", "rp=/store", "clientarea.php"}
var hostbillMarkers = []string{"cmd=cart", "hostbill", "index.php?/cart"}

// detectAxes inspects the primary page for platform fingerprints and returns
// the id spaces worth sweeping. An unrecognized platform yields none.
func detectAxes(body string) []axis {
	l := strings.ToLower(body)
	for _, m := range whmcsMarkers {
		if strings.Contains(l, m) {
			return whmcsAxes
		}
	}
	for _, m := range hostbillMarkers {
		if strings.Contains(l, m) {
			return hostbillAxes
		}
	}
	return nil
}

var whmcsPidRe = regexp.MustCompile(`(?i)cart\.php\?(?:[^"'\s]*&)?a=add&pid=(\d+)|cart\.php\?(?:[^"'\s]*&)?pid=(\d+)`)
var hostbillIDRe = regexp.MustCompile(`(?i)cmd=cart&(?:[^"'\s]*&)?action=add&id=(\d+)|cmd=cart&(?:[^"'\s]*&)?id=(\d+)`)

// extractPrimaryIDs pulls product ids referenced by a group page so the
// primary axis can probe them directly.
func extractPrimaryIDs(body string, primary axis) []int {
	re := whmcsPidRe
	if strings.HasPrefix(primary.template, "/?cmd=cart") {
		re = hostbillIDRe
	}

	seen := make(map[int]bool)
	var ids []int
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			var id int
			if _, err := fmt.Sscanf(g, "%d", &id); err == nil && id > 0 && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

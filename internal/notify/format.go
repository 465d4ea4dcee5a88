package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/sizing"
)

// Event types accepted by Notifier.Notify.
const (
	EventArbitrage   = string(domain.Arbitrage)
	EventValueEdge   = string(domain.ValueEdge)
	EventCycleFailed = "cycle_failed"
)

// Formatter renders alerts as Markdown title/body pairs.
type Formatter struct {
	// Names maps each platform to its display name.
	Names map[domain.Platform]string
}

func (f Formatter) name(p domain.Platform) string {
	if n, ok := f.Names[p]; ok && n != "" {
		return n
	}
	switch p {
	case domain.ExchangeA:
		return "Exchange A"
	case domain.ExchangeB:
		return "Exchange B"
	}
	return string(p)
}

// Alert renders one handed-off opportunity.
func (f Formatter) Alert(a domain.Alert) (title, body string) {
	o := a.Opportunity
	if o.Kind == domain.ValueEdge {
		return f.valueEdge(o)
	}

	title = fmt.Sprintf("ARBITRAGE FOUND (%s%%)", fixed(o.MarginPct, 2))
	var b strings.Builder
	fmt.Fprintf(&b, "*Market:* %s\n", o.LegA.EventTitle)
	stakeA, stakeB := "", ""
	if a.Allocation != nil {
		stakeA = " - $" + money(a.Allocation.StakeA)
		stakeB = " - $" + money(a.Allocation.StakeB)
	}
	f.writeLeg(&b, o.LegA, stakeA)
	f.writeLeg(&b, o.LegB, stakeB)
	if a.Allocation != nil {
		fmt.Fprintf(&b, "\n*Total Invested:* $%s\n", money(a.Allocation.TotalCapital))
		fmt.Fprintf(&b, "*Guaranteed Profit:* $%s", money(a.Allocation.GuaranteedProfit))
	}
	return title, strings.TrimRight(b.String(), "\n")
}

func (f Formatter) writeLeg(b *strings.Builder, l domain.Leg, stake string) {
	fmt.Fprintf(b, "\n*%s:*\n%s @ %s%s\n", f.name(l.Platform), l.Outcome, fixed(l.DecimalOdds(), 2), stake)
	if l.URL != "" {
		b.WriteString(l.URL + "\n")
	}
}

func (f Formatter) valueEdge(o domain.Opportunity) (string, string) {
	title := fmt.Sprintf("VALUE EDGE (%s%%)", fixed(o.MarginPct, 2))

	favored := o.LegA
	if o.Favored == domain.ExchangeB {
		favored = o.LegB
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Market:* %s\n*Outcome:* %s\n\n", o.LegA.EventTitle, o.LegA.Outcome)
	for _, l := range []domain.Leg{o.LegA, o.LegB} {
		fmt.Fprintf(&b, "*%s:* %s (@ %s)\n", f.name(l.Platform), fixed(l.Probability, 3), fixed(l.DecimalOdds(), 2))
	}
	fmt.Fprintf(&b, "\n*Better price:* %s", f.name(favored.Platform))
	if favored.URL != "" {
		b.WriteString("\n" + favored.URL)
	}
	return title, b.String()
}

// CycleFailed renders a failed-cycle notice.
func (f Formatter) CycleFailed(r domain.CycleReport) (string, string) {
	return "CYCLE FAILED", fmt.Sprintf("*Cycle:* %s\n*Started:* %s\n*Error:* %s",
		r.ID, r.StartedAt.UTC().Format("2006-01-02 15:04:05Z"), r.Error)
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func money(v float64) string {
	return sizing.Cents(v).StringFixed(2)
}

package service

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"balance_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// ReportOptions controls which tokens are listed and how numbers are shown.
type ReportOptions struct {
	MinValueUSD  decimal.Decimal
	HideBalances bool
	Location     *time.Location
}

var (
	chainAlertRatio = decimal.RequireFromString("0.01")
	lineAlertPct    = decimal.RequireFromString("0.25")
)

// BuildReport formats the portfolio update: a timestamp header, per-chain subtotals each followed by that chain's
// token lines, and a footer with the total and its change against previousTotal.
func BuildReport(takenAt time.Time, previous, current entity.Ledger, previousTotal decimal.Decimal, opts ReportOptions) *entity.Report {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	total := current.TotalRealValue()
	byChain := current.RealValueByChain()
	oldByChain := previous.RealValueByChain()

	chains := make([]entity.ChainSubtotal, 0, len(byChain))
	chainLines := make(map[string]string, len(byChain))
	for chain, value := range byChain {
		change := value.Sub(oldByChain[chain])
		chains = append(chains, entity.ChainSubtotal{Chain: chain, Value: value, Change: change})
		chainLines[chain] = chainLine(chain, value, change, previousTotal, opts.HideBalances)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].Chain > chains[j].Chain })

	var updates []BalanceUpdate
	for _, u := range ComputeUpdates(previous, current) {
		if u.New == nil || u.New.Price.IsZero() || u.New.RealValue().LessThan(opts.MinValueUSD) {
			continue
		}
		updates = append(updates, u)
	}
	sort.Slice(updates, func(i, j int) bool {
		a, b := updates[i].New, updates[j].New
		if a.Chain != b.Chain {
			return a.Chain > b.Chain
		}
		if c := a.RealValue().Cmp(b.RealValue()); c != 0 {
			return c > 0
		}
		return a.Address < b.Address
	})

	var msg []string
	emitted := make(map[string]bool)
	for _, u := range updates {
		line := tokenLine(u, opts.HideBalances)
		if !previousTotal.IsZero() {
			share := hundred.Mul(u.ValueChange).Div(previousTotal)
			if share.GreaterThan(lineAlertPct) {
				line += " 🔥"
			} else if share.LessThan(lineAlertPct.Neg()) {
				line += " ❗️"
			}
		}
		if chain := u.New.Chain; !emitted[chain] {
			emitted[chain] = true
			msg = append(msg, chainLines[chain], "----------------")
		}
		msg = append(msg, line)
	}

	change := total.Sub(previousTotal)
	changePct := ratioPct(change, previousTotal)
	footer := footerLine(total, change, changePct, opts.HideBalances)
	header := "*" + takenAt.In(loc).Format("2006-01-02 15:04") + ": PORTFOLIO UPDATE:*\n-------------"

	text := strings.Join([]string{
		header,
		strings.Join(msg, "\n"),
		strings.Repeat("-", utf8.RuneCountInString(footer)),
		footer,
	}, "\n")

	return &entity.Report{
		TakenAt:       takenAt,
		Text:          text,
		Total:         total,
		PreviousTotal: previousTotal,
		Change:        change,
		ChangePct:     changePct,
		Chains:        chains,
		TokenLines:    len(updates),
	}
}

func chainLine(chain string, value, change, previousTotal decimal.Decimal, hide bool) string {
	changePart := ""
	if change.Abs().RoundBank(2).IsPositive() {
		changePart = " (" + signPrefix(change) + FormatMoney(change) + ")"
	}
	line := "\n*⛓️ [" + strings.ToUpper(chain) + "] -- [$" + FormatMoney(value) + changePart + "]*"
	if !previousTotal.IsZero() {
		ratio := change.Div(previousTotal)
		if ratio.GreaterThan(chainAlertRatio) {
			line += " 🔥"
		} else if ratio.LessThan(chainAlertRatio.Neg()) {
			line += " ❗️"
		}
	}
	if hide {
		line = HideDigits(line)
	}
	return line
}

func tokenLine(u BalanceUpdate, hide bool) string {
	var emoji string
	switch {
	case u.PriceChangePct.Valid && u.PriceChangePct.Decimal.RoundBank(1).IsNegative():
		emoji = "🔴"
	case u.ValueChangePct.Valid && u.ValueChangePct.Decimal.RoundBank(1).Equal(hundred):
		emoji = "🟣"
	case u.PriceChangePct.Valid && u.PriceChangePct.Decimal.RoundBank(1).IsZero():
		emoji = "🟡"
	default:
		emoji = "🟢"
	}

	symbol := u.New.Symbol
	if utf8.RuneCountInString(symbol) >= 13 {
		symbol = string([]rune(symbol)[:10]) + "..."
	}
	mcap := ""
	if !u.New.MarketCap.IsZero() {
		mcap = "(" + FormatMarketCap(u.New.MarketCap) + ")"
	}

	changePart := ""
	if !u.ValueChange.RoundBank(2).IsZero() {
		changePart = " (" + signPrefix(u.ValueChange) + FormatMoney(u.ValueChange) + ")"
	}

	line := emoji + " " + symbol + " " + mcap + " | $" + FormatMoney(u.New.RealValue()) + changePart
	if changePart != "" {
		line = "*" + line + "*"
	}
	if hide {
		line = HideDigits(line)
	}
	return line
}

func footerLine(total, change decimal.Decimal, changePct decimal.NullDecimal, hide bool) string {
	rounded := change.RoundBank(2)
	emoji := "🟢"
	if rounded.IsNegative() {
		emoji = "🔴"
	} else if rounded.IsZero() {
		emoji = "🟡"
	}

	pctPart := ""
	if changePct.Valid {
		pctPart = " (" + changePct.Decimal.StringFixedBank(2) + "%)"
	}
	line := "*" + emoji + " $" + FormatMoney(total) + " (" + signPrefix(change) + FormatMoney(change) + pctPart + ")*"
	if hide {
		line = HideDigits(line)
	}
	return line
}

func signPrefix(d decimal.Decimal) string {
	if d.RoundBank(2).IsPositive() {
		return "+"
	}
	return ""
}

// FormatMoney renders d with two decimals (half-even) and comma-grouped thousands: -1234567.891 -> -1,234,567.89.
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixedBank(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
	trillion = decimal.NewFromInt(1_000_000_000_000)
)

// FormatMarketCap shortens a market cap: 1600000000 -> 1.6B.
func FormatMarketCap(mcap decimal.Decimal) string {
	switch {
	case mcap.LessThan(thousand):
		return mcap.StringFixedBank(0)
	case mcap.LessThan(million):
		return mcap.Div(thousand).StringFixedBank(0) + "K"
	case mcap.LessThan(billion):
		return mcap.Div(million).StringFixedBank(1) + "M"
	case mcap.LessThan(trillion):
		return mcap.Div(billion).StringFixedBank(1) + "B"
	default:
		return mcap.Div(trillion).StringFixedBank(1) + "T"
	}
}

// HideDigits replaces every numeric character with 9.
func HideDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsNumber(r) {
			return '9'
		}
		return r
	}, s)
}

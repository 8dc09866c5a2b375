package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/aegis/internal/domain"
	"github.com/vadiminshakov/aegis/internal/services/wallet"
)

var (
	subtle  = lipgloss.AdaptiveColor{Light: "#9C9C9C", Dark: "#6C6C6C"}
	special = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning = lipgloss.AdaptiveColor{Light: "#B58900", Dark: "#F0C674"}
	danger  = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}

	okStyle     = lipgloss.NewStyle().Foreground(special).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(subtle)
	errorStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func statusStyle(s domain.TxStatus) lipgloss.Style {
	switch s {
	case domain.TxStatusSuccess:
		return cellStyle.Foreground(special)
	case domain.TxStatusFailed:
		return cellStyle.Foreground(danger)
	default:
		return cellStyle.Foreground(warning)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(subtle)).
		Headers(headers...)
}

func renderHistory(txs []domain.TransactionRecord, decimals int32) string {
	if len(txs) == 0 {
		return mutedStyle.Render("no transactions yet")
	}

	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			time.UnixMilli(tx.Timestamp).Format("2006-01-02 15:04:05"),
			tx.Type.String(),
			domain.FormatDisplay(tx.Amount, decimals) + " " + tx.Token,
			string(tx.Status),
			wallet.FormatAddress(tx.Hash),
		})
	}

	t := newTable("TIME", "TYPE", "AMOUNT", "STATUS", "HASH").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 3 {
				return statusStyle(txs[row].Status)
			}
			return cellStyle
		})

	return t.Render()
}

func renderRecord(rec domain.TransactionRecord, decimals int32) string {
	if rec.Hash == "" {
		return ""
	}

	return fmt.Sprintf("%s %s %s  %s  %s",
		rec.Type,
		domain.FormatDisplay(rec.Amount, decimals),
		rec.Token,
		statusStyle(rec.Status).Render(string(rec.Status)),
		rec.Hash,
	)
}

func renderMarkets(markets []domain.MarketData) string {
	rows := make([][]string, 0, len(markets))
	for _, m := range markets {
		rows = append(rows, []string{
			m.Symbol,
			domain.FormatDisplay(m.TotalSupply, m.Decimals),
			domain.FormatDisplay(m.TotalBorrow, m.Decimals),
			percent(m.SupplyAPY),
			percent(m.BorrowAPR),
			percent(m.UtilizationRate),
		})
	}

	return newTable("MARKET", "SUPPLIED", "BORROWED", "SUPPLY APY", "BORROW APR", "UTILIZATION").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

func renderPosition(p domain.UserPosition, decimals int32) string {
	return fmt.Sprintf("supplied:      %s\nborrowed:      %s\navailable:     %s\nhealth factor: %s\nnet APY:       %s",
		domain.FormatDisplay(p.TotalSupplied, decimals),
		domain.FormatDisplay(p.TotalBorrowed, decimals),
		domain.FormatDisplay(p.AvailableToBorrow, decimals),
		p.HealthFactor.StringFixed(2),
		percent(p.NetAPY),
	)
}

func renderPoolInfo(info domain.PoolInfo, decimals int32) string {
	return fmt.Sprintf("total supply:   %s\ntotal borrowed: %s\nutilization:    %s",
		domain.FormatDisplay(info.TotalSupply, decimals),
		domain.FormatDisplay(info.TotalBorrowed, decimals),
		percent(info.UtilizationRate),
	)
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

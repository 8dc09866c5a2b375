package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/aegis/config"
	"github.com/vadiminshakov/aegis/internal"
	"github.com/vadiminshakov/aegis/internal/domain"
	"github.com/vadiminshakov/aegis/internal/services/wallet"
)

const defaultToken = "CEDRA"

var errUsage = errors.New("usage: aegis [flags] <connect|disconnect|supply|withdraw|borrow|repay|transfer|resolve|abandon|history|markets|position|pool|deposits|balance|units|theme|reset|serve|setup> [args]")

func run(ctx context.Context, c *internal.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]

	if kind, err := domain.ParseOperationKind(cmd); err == nil {
		return runOperation(ctx, c, kind, rest, out)
	}

	switch cmd {
	case "connect":
		w, err := c.RequireWallet()
		if err != nil {
			return err
		}
		if _, err := w.Connect(ctx, arg(rest, 0, "")); err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render("connected "+wallet.FormatAddress(w.Address())))
		fmt.Fprintln(out, mutedStyle.Render(c.Config.ExplorerURL(config.ExplorerAddress, w.Address())))
		return nil

	case "disconnect":
		w, err := c.RequireWallet()
		if err != nil {
			return err
		}
		if err := w.Disconnect(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render("disconnected, local history cleared"))
		return nil

	case "transfer":
		if len(rest) < 2 {
			return errors.New("usage: aegis transfer <recipient> <amount>")
		}
		hash, err := c.Transfer(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render("transfer submitted "+hash))
		fmt.Fprintln(out, mutedStyle.Render(c.Config.ExplorerURL(config.ExplorerTx, hash)))
		return nil

	case "resolve", "abandon":
		if len(rest) < 1 {
			return errors.Errorf("usage: aegis %s <hash>", cmd)
		}
		if c.Lending == nil {
			return internal.ErrNoAccount
		}
		var (
			rec domain.TransactionRecord
			err error
		)
		if cmd == "resolve" {
			rec, err = c.Lending.Resolve(ctx, rest[0])
		} else {
			rec, err = c.Lending.Abandon(rest[0])
		}
		fmt.Fprintln(out, renderRecord(rec, c.Config.Decimals))
		return err

	case "history":
		txs := c.Store.Transactions()
		if arg(rest, 0, "") == "--journal" {
			replayed, err := c.Journal.Replay(0)
			if err != nil {
				return err
			}
			txs = replayed
		}
		fmt.Fprintln(out, renderHistory(txs, c.Config.Decimals))
		return nil

	case "markets":
		markets, err := c.Markets.RefreshMarkets(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderMarkets(markets))
		return nil

	case "position":
		position, err := c.Markets.RefreshPosition(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderPosition(position, c.Config.Decimals))
		return nil

	case "pool":
		info, err := c.Markets.PoolInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderPoolInfo(info, c.Config.Decimals))
		return nil

	case "deposits":
		units, err := c.Markets.UserDeposits(ctx, arg(rest, 0, ""))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", domain.FormatDisplay(units, c.Config.Decimals), defaultToken)
		return nil

	case "balance":
		token := arg(rest, 0, defaultToken)
		units, err := c.Balance(ctx, token)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", units.String(), strings.ToUpper(token))
		return nil

	case "units":
		if len(rest) < 1 {
			return errors.New("usage: aegis units <amount>")
		}
		units, err := domain.ToSmallestUnit(rest[0], c.Config.Decimals)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %s units (%s)\n", rest[0], units.String(), domain.FormatDisplay(units, c.Config.Decimals))
		return nil

	case "theme":
		if len(rest) < 1 {
			fmt.Fprintln(out, c.Store.Theme())
			return nil
		}
		theme := domain.Theme(strings.ToLower(rest[0]))
		if err := c.Store.SetTheme(theme); err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render("theme set to "+string(theme)))
		return nil

	case "reset":
		if err := c.Store.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render("client state cleared"))
		return nil

	case "serve":
		srv := c.WebServer()
		if len(c.Config.TLSDomains) > 0 {
			return srv.StartWithAutoTLS(ctx, c.Config.TLSDomains, c.Config.CertCacheDir)
		}
		return srv.Start(ctx)

	default:
		return errUsage
	}
}

// runOperation handles "<supply|withdraw|borrow|repay> <amount> [token]".
func runOperation(ctx context.Context, c *internal.Client, kind domain.OperationKind, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.Errorf("usage: aegis %s <amount> [token]", kind)
	}

	rec, err := c.Execute(ctx, kind, strings.ToUpper(arg(args, 1, defaultToken)), args[0])
	if rec.Hash != "" {
		fmt.Fprintln(out, renderRecord(rec, c.Config.Decimals))
		if !strings.HasPrefix(rec.Hash, domain.PendingHash) {
			fmt.Fprintln(out, mutedStyle.Render(c.Config.ExplorerURL(config.ExplorerTx, rec.Hash)))
		}
	}

	return err
}

func arg(args []string, i int, fallback string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return fallback
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/marketdata"
)

// --- Cache Commands ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the price cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached (symbol, trading day) entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := marketdata.OpenStore(cfg.StoreConfig(), logger)
		if err != nil {
			return err
		}
		defer store.Close()

		keys, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, k := range keys {
			fmt.Fprintf(out, "%-8s %s\n", k.Symbol, k.TradingDay)
		}
		fmt.Fprintf(out, "%d entries (%s backend)\n", len(keys), cfg.Cache.Backend)
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show SYMBOL DATE",
	Short: "Print one cached record as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol, day, err := parseCacheKey(args)
		if err != nil {
			return err
		}
		store, err := marketdata.OpenStore(cfg.StoreConfig(), logger)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, ok, err := store.Get(cmd.Context(), symbol, day)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no cache entry for %s on %s", symbol, day)
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(pretty.Pretty(raw))
		return err
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate SYMBOL DATE",
	Short: "Remove one cached record so the next run fetches it again",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol, day, err := parseCacheKey(args)
		if err != nil {
			return err
		}
		store, err := marketdata.OpenStore(cfg.StoreConfig(), logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Invalidate(cmd.Context(), symbol, day); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s %s\n", symbol, day)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}

func parseCacheKey(args []string) (string, calendar.TradingDay, error) {
	symbol, err := marketdata.NormalizeSymbol(args[0])
	if err != nil {
		return "", calendar.TradingDay{}, err
	}
	day, err := calendar.ParseTradingDay(args[1])
	if err != nil {
		return "", calendar.TradingDay{}, err
	}
	return symbol, day, nil
}

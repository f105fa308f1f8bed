package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sheikh-saqib/custodial-ledger/internal/client"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

var commandKeygen = &cli.Command{
	Name:  "keygen",
	Usage: "generate a keypair and write a config file",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Usage: "overwrite an existing config file"},
		&cli.StringFlag{Name: "program-id", Usage: "pin the program id in the config"},
	},
	Action: func(ctx *cli.Context) error {
		path := ctx.String(configFlag.Name)
		if _, err := os.Stat(path); err == nil && !ctx.Bool("force") {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		kp, err := identity.GenerateKeypair()
		if err != nil {
			return err
		}
		cfg := client.Config{
			Keypair:   client.KeypairValue{Keypair: &kp},
			Endpoint:  ctx.String(endpointFlag.Name),
			ProgramID: ctx.String("program-id"),
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = client.DefaultEndpoint
		}
		if _, _, err := cfg.ProgramKey(); err != nil {
			return err
		}
		if err := client.SaveConfig(path, cfg); err != nil {
			return err
		}
		return output(ctx, map[string]string{"authority": kp.PublicKey().String(), "config": path},
			"authority %s written to %s\n", kp.PublicKey(), path)
	},
}

var commandAddress = &cli.Command{
	Name:  "address",
	Usage: "print the record address derived for this keypair",
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		addr, bump, err := s.Address()
		if err != nil {
			return err
		}
		return output(ctx, map[string]any{
			"authority":  s.Authority().String(),
			"program_id": s.ProgramID().String(),
			"address":    addr.String(),
			"bump":       bump,
		}, "authority %s\naddress   %s (bump %d)\n", s.Authority(), addr, bump)
	},
}

var commandShow = &cli.Command{
	Name:  "show",
	Usage: "show the record and the authority's own holding",
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		acct, found, err := s.Lookup(ctx.Context)
		if err != nil {
			return err
		}
		own, err := s.Holding(ctx.Context, s.Authority())
		if err != nil {
			return err
		}
		if !found {
			return output(ctx, map[string]any{"exists": false, "authority_holding": own},
				"no record yet; authority holding %s units\n", own.HoldingUnits)
		}
		return output(ctx, map[string]any{"exists": true, "account": acct, "authority_holding": own},
			"address   %s\nbalance   %d (%s units)\nholding   %d\nauthority holding %s units\n",
			acct.Address, acct.Balance, acct.BalanceUnits, acct.Holding, own.HoldingUnits)
	},
}

var commandHistory = &cli.Command{
	Name:  "history",
	Usage: "list the journal entries of the record",
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		addr, _, err := s.Address()
		if err != nil {
			return err
		}
		entries, err := s.Entries(ctx.Context, addr)
		if err != nil {
			return err
		}
		if ctx.Bool(jsonFlag.Name) {
			return json.NewEncoder(ctx.App.Writer).Encode(entries)
		}
		for _, e := range entries {
			fmt.Fprintf(ctx.App.Writer, "%s  %-13s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Memo, e.Amount)
		}
		return nil
	},
}

var commandInit = &cli.Command{
	Name:  "init",
	Usage: "create the record, paying the creation fee",
	Action: func(ctx *cli.Context) error {
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		res, err := s.Init(ctx.Context)
		if err != nil {
			return err
		}
		return output(ctx, res, "created %s (op %s)\n", res.Account.Address, res.OperationID)
	},
}

var commandDeposit = &cli.Command{
	Name:      "deposit",
	Usage:     "move units from the authority into the record",
	ArgsUsage: "<amount>",
	Action: func(ctx *cli.Context) error {
		return move(ctx, models.OpDeposit)
	},
}

var commandWithdraw = &cli.Command{
	Name:      "withdraw",
	Usage:     "move units from the record back to the authority",
	ArgsUsage: "<amount>",
	Action: func(ctx *cli.Context) error {
		return move(ctx, models.OpWithdraw)
	},
}

var commandAirdrop = &cli.Command{
	Name:      "airdrop",
	Usage:     "fund an address from the server faucet",
	ArgsUsage: "<amount>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "to", Usage: "recipient, defaults to this authority"},
	},
	Action: func(ctx *cli.Context) error {
		amount, err := amountArg(ctx)
		if err != nil {
			return err
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		to := s.Authority()
		if v := ctx.String("to"); v != "" {
			if to, err = identity.ParsePublicKey(v); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
		}
		res, err := s.Faucet(ctx.Context, to, amount)
		if err != nil {
			return err
		}
		return output(ctx, res, "%s now holds %s units\n", res.Address, res.HoldingUnits)
	},
}

var commandDemo = &cli.Command{
	Name:  "demo",
	Usage: "create if missing, deposit, then withdraw",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "deposit", Value: "0.05", Usage: "units to deposit"},
		&cli.StringFlag{Name: "withdraw", Value: "0.02", Usage: "units to withdraw"},
	},
	Action: func(ctx *cli.Context) error {
		dep, err := models.ParseUnits(ctx.String("deposit"))
		if err != nil {
			return fmt.Errorf("--deposit: %w", err)
		}
		wd, err := models.ParseUnits(ctx.String("withdraw"))
		if err != nil {
			return fmt.Errorf("--withdraw: %w", err)
		}
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		_, err = s.Demo(ctx.Context, ctx.App.Writer, dep, wd)
		return err
	},
}

func move(ctx *cli.Context, kind models.OpKind) error {
	amount, err := amountArg(ctx)
	if err != nil {
		return err
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	res, err := s.Execute(ctx.Context, kind, amount)
	if err != nil {
		return err
	}
	return output(ctx, res, "%s ok, balance %d (%s units)\n", kind, res.Account.Balance, res.Account.BalanceUnits)
}

func amountArg(ctx *cli.Context) (uint64, error) {
	if ctx.NArg() != 1 {
		return 0, errors.New("expected exactly one <amount> argument, in whole units")
	}
	return models.ParseUnits(ctx.Args().First())
}

func openSession(ctx *cli.Context) (*client.Session, error) {
	cfg, err := client.LoadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	endpoint := cfg.Endpoint
	if v := ctx.String(endpointFlag.Name); v != "" {
		endpoint = v
	}
	program, pinned, err := cfg.ProgramKey()
	if err != nil {
		return nil, err
	}
	var programID *identity.PublicKey
	if pinned {
		programID = &program
	}
	return client.NewSession(ctx.Context, client.New(endpoint), *cfg.Keypair.Keypair, programID)
}

// output prints v as JSON under --json, otherwise the formatted text.
func output(ctx *cli.Context, v any, format string, args ...any) error {
	if ctx.Bool(jsonFlag.Name) {
		enc := json.NewEncoder(ctx.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintf(ctx.App.Writer, format, args...)
	return err
}

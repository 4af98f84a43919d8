package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		&cli.StringFlag{Name: "chain", Aliases: []string{"c"}, Usage: "Chain family (core, ethereum)"},
		&cli.StringFlag{Name: "network", Aliases: []string{"n"}, Usage: "Network name the deployment is recorded under"},
		&cli.StringFlag{Name: "network-id", Aliases: []string{"i"}, Usage: "Network (chain) id"},
		&cli.StringFlag{Name: "blockchain-service-url", Aliases: []string{"b"}, Usage: "Blockchain service URL"},
		&cli.StringFlag{Name: "artifacts-dir", Aliases: []string{"a"}, Usage: "Directory holding the compiled contract artifacts"},
		&cli.StringFlag{Name: "wallet", Aliases: []string{"w"}, Usage: "Wallet receiving the sale proceeds"},
		&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
		&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
		&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
		&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
		&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
		&cli.BoolFlag{Name: "no-registry", Usage: "Do not record runs in Postgres"},
	}
}

func migrateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "allow-duplicate-symbol", Usage: "Deploy even if the token symbol already exists on the network"},
		&cli.BoolFlag{Name: "symbol-preflight", Usage: "Check the token symbol against the well-known token list"},
		&cli.BoolFlag{Name: "no-write-artifacts", Usage: "Do not write deployed addresses back into the artifacts"},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "api-port", Usage: "HTTP API port"},
	}
}

func main() {
	app := &cli.App{
		Name:  "tokensale",
		Usage: "Deploys and tracks the token sale contracts",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Deploy the token, factory, whitelist and sale contracts",
				Flags:  migrateFlags(),
				Action: migrate,
			},
			{
				Name:   "plan",
				Usage:  "Print the sale window and constructor arguments without deploying",
				Action: plan,
			},
			{
				Name:   "deployments",
				Usage:  "Print the deployments recorded for the network",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "all", Usage: "Print the deployments of every network"}},
				Action: deployments,
			},
			{
				Name:   "serve",
				Usage:  "Serve the deployment registry over HTTP",
				Flags:  serveFlags(),
				Action: serve,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

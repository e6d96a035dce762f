package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/trustcore/cmd/app/commands"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new PII master key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "key-version",
					Aliases: []string{"k"},
					Value:   "v1",
					Usage:   "Key version label (e.g., v1, v2)",
				},
				&cli.StringFlag{
					Name:  "kms-provider",
					Value: "",
					Usage: "KMS provider for key wrapping (awskms, gcpkms, azurekeyvault, hashivault, localsecrets)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateMasterKey(
					ctx,
					commands.DefaultIO().Writer,
					cmd.String("key-version"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "create-service-keypair",
			Usage: "Generate an RSA keypair for service-to-service authentication",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "service-id",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Service identifier the keypair belongs to (e.g., billing-service)",
				},
				&cli.StringFlag{
					Name:    "output-dir",
					Aliases: []string{"o"},
					Value:   "",
					Usage:   "Directory to write the PEM files to (omit to print to stdout)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateServiceKeypair(
					commands.DefaultIO().Writer,
					cmd.String("service-id"),
					cmd.String("output-dir"),
				)
			},
		},
	}
}

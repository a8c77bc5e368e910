// Command flowsig trains and applies signature-set anomaly detectors on
// tabular flow data.
//
//	flowsig train --train-data train.csv --sigset sigset.npy
//	flowsig test --test-data test.csv --sigset sigset.npy --result predictions.csv
//	flowsig run --train-data train.csv --test-data test.csv
//	flowsig inspect --storage-dir ./models sigset.npy
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                 "flowsig",
		Usage:                "flow-based anomaly detection using signature matching",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "train",
				Usage:  "build a signature set from training data and save it",
				Flags:  withCommonFlags(trainDataFlag(true)),
				Action: trainAction,
			},
			{
				Name:   "test",
				Usage:  "classify test data against a saved signature set",
				Flags:  withCommonFlags(testDataFlag(true)),
				Action: testAction,
			},
			{
				Name:   "run",
				Usage:  "train and/or test in one invocation",
				Flags:  withCommonFlags(trainDataFlag(false), testDataFlag(false)),
				Action: runAction,
			},
			{
				Name:        "inspect",
				Usage:       "print size, format and signature range of a saved signature set",
				ArgsUsage:   "[flags] [name]",
				Description: "Flags must come before the name, which defaults to --sigset.",
				Flags:       withCommonFlags(),
				Action:      inspectAction,
			},
		},
		// Errors are printed by main.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

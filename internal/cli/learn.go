package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/internal/learner"
	"github.com/lewisedginton/rota/internal/server"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/urfave/cli/v2"
)

// LearnCommand returns the learning commands. Without a subcommand it runs one
// batch over the question file or the questions given as arguments.
func LearnCommand() *cli.Command {
	return &cli.Command{
		Name:      "learn",
		Aliases:   []string{"l"},
		Usage:     "Learn answers for a batch of questions",
		ArgsUsage: "[question...]",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.StringFlag{
				Name:  "file",
				Usage: "Question file (defaults to learner.questions_file)",
			},
			&cli.BoolFlag{
				Name:  "skip-answered",
				Usage: "Skip questions that already have an answer",
				Value: true,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Minimum spacing between questions (defaults to learner.interval)",
			},
		},
		Action: learnBatchAction,
		Subcommands: []*cli.Command{
			{
				Name:  "loop",
				Usage: "Learn continuously until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Pause between questions (defaults to learner.loop_interval)",
					},
				},
				Action: learnLoopAction,
			},
			{
				Name:  "news",
				Usage: "Learn from news headlines about a topic",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "News topic", Required: true},
					&cli.IntFlag{Name: "n", Usage: "Number of articles", Value: 5},
				},
				Action: learnNewsAction,
			},
		},
	}
}

func learnBatchAction(ctx *cli.Context) error {
	questions := ctx.Args().Slice()

	b, err := remote(ctx)
	if err != nil {
		return err
	}
	if b != nil {
		var skip *bool
		if ctx.IsSet("skip-answered") {
			v := ctx.Bool("skip-answered")
			skip = &v
		}
		res, err := b.Learn(ctx.Context, questions, skip)
		if err != nil {
			return err
		}
		if res.Running() {
			fmt.Fprintln(ctx.App.Writer, batchRunningMessage)
			return nil
		}
		printBatch(ctx, res.BatchResult)
		return nil
	}

	return withComponents(ctx, func(c *server.Components) error {
		if len(questions) == 0 {
			if path := ctx.String("file"); path != "" {
				questions = c.QuestionsFrom(ctx.Context, path)
			} else {
				questions = c.Questions(ctx.Context)
			}
		}

		opts := learner.BatchOptions{
			Interval:     c.Config.Learner.Interval,
			SkipAnswered: ctx.Bool("skip-answered"),
		}
		if ctx.IsSet("interval") {
			opts.Interval = ctx.Duration("interval")
		}

		res, err := c.Learner.LearnBatch(ctx.Context, questions, opts)
		if err != nil {
			c.Log.Error("Learning batch failed", logger.ErrorField(err))
			return err
		}
		c.Knowledge.Reload(ctx.Context)
		printBatch(ctx, res)
		return nil
	})
}

// batchRunningMessage is printed when the service keeps learning after answering.
const batchRunningMessage = "The server is still learning in the background. Ask it again in a little while."

func printBatch(ctx *cli.Context, res learner.BatchResult) {
	fmt.Fprintf(ctx.App.Writer, "Attempted %d, learned %d, skipped %d, failed %d.\n",
		res.Attempted, res.Learned, res.Skipped, res.Failed)
	if res.Learned > 0 {
		fmt.Fprintln(ctx.App.Writer, executor.LearnedReply)
	}
}

func learnLoopAction(ctx *cli.Context) error {
	return withComponents(ctx, func(c *server.Components) error {
		runCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		source, release, err := c.QuestionSource(runCtx)
		if err != nil {
			return err
		}
		defer release()

		interval := c.Config.Learner.LoopInterval
		if ctx.IsSet("interval") {
			interval = ctx.Duration("interval")
		}
		if err := c.Learner.ContinuousLearn(runCtx, source, interval); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Stopped. %d answers known.\n", c.Knowledge.Len())
		return nil
	})
}

func learnNewsAction(ctx *cli.Context) error {
	return withComponents(ctx, func(c *server.Components) error {
		n, err := c.Learner.LearnFromNews(ctx.Context, ctx.String("query"), ctx.Int("n"))
		if err != nil {
			c.Log.Error("News learning failed", logger.ErrorField(err))
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "Learned %d new records from the news.\n", n)
		return nil
	})
}

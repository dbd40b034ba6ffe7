package cli

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/atlas/backend/internal/queue"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <index|taxonomy|dedupe>",
	Short: "Hand a job to the worker instead of running it inline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			queueName string
			payload   any
		)
		reason := viper.GetString("reason")
		force, _ := cmd.Flags().GetBool("force")
		switch args[0] {
		case "index":
			queueName = queue.IndexQueue
			payload = queue.IndexJob{Force: force, Reason: reason}
		case "taxonomy":
			queueName = queue.TaxonomyQueue
			payload = queue.TaxonomyJob{Reason: reason}
		case "dedupe":
			queueName = queue.DedupeQueue
			payload = queue.DedupeJob{Reason: reason}
		default:
			return fmt.Errorf("unknown job %q", args[0])
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		conn := queue.Init()
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return err
		}
		defer ch.Close()

		if err := queue.Publish(ch, queueName, body); err != nil {
			return err
		}
		fmt.Printf("queued %s job\n", args[0])
		return nil
	},
}

func init() {
	enqueueCmd.Flags().Bool("force", false, "for index jobs, rebuild across a provider change")
	enqueueCmd.Flags().String("reason", "", "free-form note carried with the job")
	_ = viper.BindPFlag("reason", enqueueCmd.Flags().Lookup("reason"))

	rootCmd.AddCommand(enqueueCmd)
}

// Copyright © 2024 The Mago authors

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/magophp/mago/docs"
)

// helpTopics returns commands without a Run function, which cobra lists as
// additional help topics.
func helpTopics() []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "configuration",
			Short: "Configuration files, environment variables, and flags",
			Long:  docs.ConfigurationGuide,
		},
		{
			Use:   "suppressing-issues",
			Short: "Silencing issues with @mago-ignore and @mago-expect",
			Long:  docs.SuppressionGuide,
		},
	}
}

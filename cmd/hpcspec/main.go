// Command hpcspec parses, merges and resolves package build-constraint
// strings against a directory of package recipes.
package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hpcpkg/spec"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "hpcspec",
		Short:         "Parse, merge and resolve package build-constraint strings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(os.Stderr)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newParseCmd(), newUnifyCmd(), newResolveCmd())
	return root
}

func newParseCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "parse <constraint-string>",
		Short: "Parse a constraint string and print the resulting spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := spec.Parse(args[0])
			if err != nil {
				return err
			}
			return emit(cmd, s, asYAML)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the full spec as YAML")
	return cmd
}

func newUnifyCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "unify <constraint-string> <constraint-string>",
		Short: "Merge two constraint strings for the same package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := spec.Parse(args[0])
			if err != nil {
				return err
			}
			b, err := spec.Parse(args[1])
			if err != nil {
				return err
			}
			merged, err := spec.Unify(a, b)
			if err != nil {
				return err
			}
			return emit(cmd, merged, asYAML)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the full spec as YAML")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var (
		repoDir string
		asYAML  bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <constraint-string>",
		Short: "Resolve a request against package recipes and propagate constraints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := spec.LoadRepo(repoDir)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"dir":     repoDir,
				"recipes": len(repo),
			}).Debug("loaded recipe repository")

			request, err := spec.Parse(args[0])
			if err != nil {
				return err
			}
			resolved, err := spec.Resolve(request, repo)
			if err != nil {
				if spec.IsConflict(err) {
					logrus.WithField("package", request.Name).Debug("constraint conflict")
				}
				return err
			}
			return emit(cmd, resolved, asYAML)
		},
	}
	cmd.Flags().StringVar(&repoDir, "repo", ".", "directory of package recipe YAML files")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the full spec as YAML")
	return cmd
}

func emit(cmd *cobra.Command, s *spec.Spec, asYAML bool) error {
	if !asYAML {
		fmt.Fprintln(cmd.OutOrStdout(), s.String())
		return nil
	}
	dt, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(dt))
	return nil
}

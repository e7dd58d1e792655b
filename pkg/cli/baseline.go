package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/glasshouse-qa/vizguard-agent/internal/baseline"
)

func newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage stored baseline images",
		Long: "Baselines are created automatically the first time a scenario is captured and are\n" +
			"never overwritten by a normal run. Replacing or removing one is an explicit\n" +
			"operator action, done here after an intended visual change.",
	}

	cmd.PersistentFlags().String("dir", "./baselines", "Baseline image directory")
	_ = viper.BindPFlag("baseline.dir", cmd.PersistentFlags().Lookup("dir"))

	cmd.AddCommand(newBaselineListCmd())
	cmd.AddCommand(newBaselineRegenerateCmd())
	cmd.AddCommand(newBaselineClearCmd())
	return cmd
}

func baselineStore() *baseline.Store {
	return baseline.NewStore(viper.GetString("baseline.dir"), logger)
}

func newBaselineListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored baselines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := baselineStore().List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No baselines stored.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("  %-48s %s  (%s)\n", e.Key, e.CreatedAt.Format("2006-01-02 15:04"), e.File)
			}
			fmt.Printf("%d baselines\n", len(entries))
			return nil
		},
	}
}

func newBaselineRegenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "regenerate <key>",
		Short:   "Replace one baseline with a new reference image",
		Example: "  vizguard baseline regenerate homepage@desktop --image ./reports/latest/captures/homepage_desktop.png",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imgPath := viper.GetString("baseline.image")
			if imgPath == "" {
				return errors.New("please provide --image pointing to the new reference PNG")
			}
			img, err := os.ReadFile(imgPath)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			key := args[0]
			if err := baselineStore().Regenerate(key, img); err != nil {
				return err
			}
			fmt.Printf("✅ Baseline %s regenerated from %s\n", key, imgPath)
			return nil
		},
	}
	cmd.Flags().String("image", "", "Reference PNG to store for the key")
	_ = viper.BindPFlag("baseline.image", cmd.Flags().Lookup("image"))
	return cmd
}

func newBaselineClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [key]",
		Short: "Remove one baseline, or all of them with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := baselineStore()

			if viper.GetBool("baseline.all") {
				entries, err := store.List()
				if err != nil {
					return err
				}
				for _, e := range entries {
					if err := store.Remove(e.Key); err != nil {
						return err
					}
				}
				fmt.Printf("✅ Removed %d baselines\n", len(entries))
				return nil
			}

			if len(args) == 0 {
				return errors.New("provide a key to remove, or --all")
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("✅ Baseline %s removed\n", args[0])
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Remove every stored baseline")
	_ = viper.BindPFlag("baseline.all", cmd.Flags().Lookup("all"))
	return cmd
}

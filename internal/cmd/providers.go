package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/homeclock/internal/config"
	"github.com/Iron-Ham/homeclock/internal/provider"
	"github.com/Iron-Ham/homeclock/internal/shell"
)

var providersCmd = &cobra.Command{
	Use:   "providers [package...]",
	Short: "List registered widget providers",
	Long: `List the package to provider mappings from the provider registry.

With package arguments, resolves each one and reports the clock family
it would be routed to.`,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().String("registry", "", "registry file (overrides provider.registry_file)")
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("registry")
	if path == "" {
		path = cfg.Provider.RegistryFile
	}
	if path == "" {
		return fmt.Errorf("no provider registry configured (set provider.registry_file or pass --registry)")
	}
	registry, err := provider.LoadRegistry(path)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		entries := registry.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No providers registered.")
			return nil
		}
		fmt.Fprintf(out, "%-40s %-24s %s\n", "PACKAGE", "PROVIDER", "CONTENT")
		for _, e := range entries {
			fmt.Fprintf(out, "%-40s %-24s %s\n", e.Package, e.ProviderID, e.Content)
		}
		return nil
	}

	sh, err := shell.New(cfg, shell.Options{Registry: registry})
	if err != nil {
		return err
	}
	defer sh.Close()

	for _, pkg := range args {
		family := "none"
		if f, err := sh.Service().FamilyFor(pkg); err == nil {
			family = f.Name()
		}
		id, ok := registry.Resolve(pkg)
		if !ok {
			fmt.Fprintf(out, "%s: not registered (family %s)\n", pkg, family)
			continue
		}
		fmt.Fprintf(out, "%s: provider %s, family %s\n", pkg, id, family)
	}
	return nil
}

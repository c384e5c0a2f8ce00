package main

import (
	"github.com/spf13/cobra"

	"github.com/simplyliz/searchd/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "searchd",
	Short: "searchd - a universal search engine facade",
	Long: `searchd fronts a set of interchangeable search backends (database,
cache, hybrid) behind a single governed HTTP surface: one query in, a
merged and security-filtered result set out, regardless of which backend
actually answered it.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("searchd version {{.Version}}\n")
}

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-enrollment/pkg/openapi"
	"github.com/goliatone/go-enrollment/pkg/rules"
)

var openapiFormat string

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the OpenAPI description of the enrollment API",
	RunE:  runOpenAPI,
}

func init() {
	openapiCmd.Flags().StringVar(&openapiFormat, "format", "json", "output format (json or yaml)")
}

func runOpenAPI(cmd *cobra.Command, args []string) error {
	cal, err := rules.LoadCalendar(cfg.Calendar.Timezone, time.Now)
	if err != nil {
		return err
	}
	def, err := loadDefinition(cfg.Form.Definition)
	if err != nil {
		return err
	}
	f, table, err := def.Build(rules.DefaultRegistry(cal))
	if err != nil {
		return err
	}
	doc, err := openapi.Describe(cmd.Context(), f, table,
		openapi.WithTitle(cfg.Server.Title),
		openapi.WithBasePath(cfg.Server.BasePath),
	)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode openapi: %w", err)
	}
	out := cmd.OutOrStdout()
	switch openapiFormat {
	case "json":
		_, err = fmt.Fprintln(out, string(raw))
		return err
	case "yaml":
		var tree any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return fmt.Errorf("convert openapi: %w", err)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", openapiFormat)
}

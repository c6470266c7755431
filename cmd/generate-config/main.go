package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/whydoesntmycode/blog/internal/config"
)

func main() {
	cfg := config.Default()
	cfg.Admin.Token = "${ADMIN_TOKEN}"

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating YAML: %v\n", err)
		os.Exit(1)
	}

	header := "# Blog configuration example\n" +
		"# Copy this file to config.yaml and customize as needed.\n" +
		"# ${VAR} references are expanded from the environment.\n\n"
	output := header + string(yamlData)

	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if outputFile == "-" {
		fmt.Print(output)
		return
	}

	if err := os.WriteFile(outputFile, []byte(output), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}

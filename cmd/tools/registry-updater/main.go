// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"premium-predictor/internal/common/config"
	"premium-predictor/internal/common/validation"
	predictpremium "premium-predictor/internal/workers/premium/predict-premium"
	"premium-predictor/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)

	// Add command flags
	idAdd := addCmd.String("id", "", "Activity ID (e.g., premium.prediction.compute)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Predict Insurance Premium)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (e.g., premium)")
	taskType := addCmd.String("taskType", "", "Camunda Task Type (e.g., predict-insurance-premium)")
	version := addCmd.String("version", "1.0.0", "Version")
	implStatus := addCmd.String("status", registry.StatusPlanned, "Implementation Status (planned, in-progress, completed, verified)")
	addPath := addCmd.String("path", defaultRegistryPath, "Path to registry file")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, etc.)")
	value := updateCmd.String("value", "", "New value for the field")
	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")

	// Sync command flags
	configPath := syncCmd.String("config", "", "Config file (defaults to configs/config.yaml lookup)")
	syncPath := syncCmd.String("path", "", "Path to registry file (defaults to registry.path from config)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		registryPath = *addPath
		if *idAdd == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
			fmt.Println("Error: id, displayName, description, category, and taskType are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		if err := validation.ValidateActivityNaming(*idAdd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		activity := registry.Activity{
			ID:                   *idAdd,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *implStatus,
			InputSchema:          map[string]interface{}{},
			OutputSchema:         map[string]interface{}{},
			ErrorCodes:           []string{},
			Timeout:              "10s",
			Retries:              0,
			Workflows:            []string{},
			Tags:                 []string{},
		}
		if err := addActivity(activity); err != nil {
			fmt.Printf("Error adding activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added activity: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		registryPath = *updatePath
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		registryPath = *validatePath
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "sync":
		syncCmd.Parse(os.Args[2:])
		registryPath = *syncPath
		replaced, err := syncPremiumActivity(*configPath)
		if err != nil {
			fmt.Printf("Error syncing activity: %v\n", err)
			os.Exit(1)
		}
		verb := "Added"
		if replaced {
			verb = "Refreshed"
		}
		fmt.Printf("%s activity %s in %s\n", verb, registry.PremiumActivityID, registryPath)

	case "help":
		fallthrough
	default:
		help()
	}
}

func addActivity(activity registry.Activity) error {
	reg, err := registry.LoadOrNew(registryPath)
	if err != nil {
		return err
	}
	if err := reg.Add(activity); err != nil {
		return err
	}
	return registry.SaveRegistry(reg, registryPath)
}

func updateActivity(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	activity := reg.Find(id)
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "displayName":
		activity.DisplayName = value
	case "description":
		activity.Description = value
	case "category":
		activity.Category = value
	case "taskType":
		activity.TaskType = value
	case "timeout":
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	// Upsert refreshes lastUpdated
	reg.Upsert(*activity)
	return registry.SaveRegistry(reg, registryPath)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

// syncPremiumActivity writes the premium worker's activity entry using the
// timeout and retries from the application config.
func syncPremiumActivity(configPath string) (bool, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return false, fmt.Errorf("failed to load config: %w", err)
	}

	if registryPath == "" {
		registryPath = cfg.Registry.Path
	}

	wcfg := config.GetWorkerConfig(cfg, predictpremium.TaskType)
	activity := registry.PremiumActivity(
		predictpremium.TaskType,
		predictpremium.LoadConfig(cfg).Timeout,
		wcfg.MaxRetries,
	)

	reg, err := registry.LoadOrNew(registryPath)
	if err != nil {
		return false, err
	}
	replaced := reg.Upsert(activity)
	return replaced, registry.SaveRegistry(reg, registryPath)
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file
  sync     Write the premium prediction activity from the application config
  help     Show this help message

Examples:
  registry-updater add -id premium.prediction.explain -displayName "Explain Premium" -description "Explains a predicted premium" -category premium -taskType explain-insurance-premium
  registry-updater update -id premium.prediction.compute -field status -value verified
  registry-updater validate -path configs/activity-registry.json
  registry-updater sync -config configs/config.yaml

Use 'registry-updater <command> -h' for more information about a command.
`)
}

// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"loan-eligibility-workers/internal/common/validation"
	"loan-eligibility-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)

	var registryPath string
	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, checkCmd} {
		fs.StringVar(&registryPath, "path", defaultRegistryPath, "Path to registry file")
	}

	// Add command flags
	idAdd := addCmd.String("id", "", "Activity ID (e.g., check-loan-eligibility)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Check Loan Eligibility)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (profile, verification, loan)")
	taskType := addCmd.String("taskType", "", "Camunda Task Type (defaults to id)")
	version := addCmd.String("version", "1.0.0", "Version")
	implStatus := addCmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	// Check command flags
	checkTask := checkCmd.String("taskType", "", "Task type whose input schema to apply")
	checkVars := checkCmd.String("vars", "", "Path to a JSON file with job variables")

	if len(os.Args) < 2 {
		help(os.Stdout)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" || *category == "" {
			fmt.Println("Error: id, displayName, description, and category are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		tt := *taskType
		if tt == "" {
			tt = *idAdd
		}
		err = addActivity(registryPath, registry.Activity{
			ID:                   *idAdd,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             tt,
			ImplementationStatus: registry.Status(*implStatus),
			InputSchema:          map[string]interface{}{},
			OutputSchema:         map[string]interface{}{},
			ErrorCodes:           []string{},
			Timeout:              registry.DefaultTimeout.String(),
			Workflows:            []string{"loan-eligibility"},
			Tags:                 []string{},
		})
		if err == nil {
			fmt.Printf("Added activity: %s\n", *idAdd)
		}

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err = updateActivity(registryPath, *idUpdate, *field, *value)
		if err == nil {
			fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		err = validateRegistry(registryPath)

	case "check":
		checkCmd.Parse(os.Args[2:])
		if *checkTask == "" || *checkVars == "" {
			fmt.Println("Error: taskType and vars are required for check.")
			checkCmd.Usage()
			os.Exit(1)
		}
		err = checkVariables(registryPath, *checkTask, *checkVars)

	case "help":
		fallthrough
	default:
		help(os.Stdout)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func addActivity(path string, activity registry.Activity) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	}

	if _, err := reg.Find(activity.TaskType); err == nil {
		return fmt.Errorf("activity with task type %s already exists", activity.TaskType)
	}

	reg.Activities = append(reg.Activities, activity)
	reg.LastUpdated = time.Now().Format("2006-01-02")
	if err := reg.Validate(); err != nil {
		return err
	}
	return reg.Save(path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var activity *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			activity = &reg.Activities[i]
			break
		}
	}
	if activity == nil {
		return fmt.Errorf("%w: %s", registry.ErrActivityNotFound, id)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = registry.Status(value)
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
		if _, err := activity.TimeoutDuration(); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	case "tags":
		activity.Tags = strings.Split(value, ",")
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().Format("2006-01-02")
	if err := reg.Validate(); err != nil {
		return err
	}
	return reg.Save(path)
}

func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

// checkVariables runs a job-variables document through the input schema
// the worker manager would apply.
func checkVariables(path, taskType, varsPath string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if _, err := reg.Find(taskType); err != nil {
		return err
	}

	v := validation.NewSchemaValidator()
	if err := reg.RegisterInputSchemas(v); err != nil {
		return err
	}

	raw, err := os.ReadFile(varsPath)
	if err != nil {
		return fmt.Errorf("read variables: %w", err)
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(raw, &vars); err != nil {
		return fmt.Errorf("decode variables: %w", err)
	}

	res := v.Validate(taskType, vars)
	if !res.Valid {
		return fmt.Errorf("variables rejected for %s: %s", taskType, res.Error())
	}
	fmt.Printf("Variables accepted for %s.\n", taskType)
	return nil
}

func help(w io.Writer) {
	fmt.Fprint(w, usage)
}

const usage = `
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file and compile its input schemas
  check    Validate a job variables file against a task type's input schema
  help     Show this help message

Examples:
  registry-updater add -id check-loan-eligibility -displayName "Check Loan Eligibility" -description "Applies the collateral policy" -category loan
  registry-updater update -id check-loan-eligibility -field status -value completed
  registry-updater validate -path configs/activity-registry.json
  registry-updater check -taskType check-loan-eligibility -vars vars.json

Use 'registry-updater <command> -h' for more information about a command.
`

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/cityfix/pkg/types"
	"github.com/cuemby/cityfix/pkg/users"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply account resources from a YAML file",
	Long: `Create or update staff and admin accounts from a YAML file.

Accounts are matched by email. Existing accounts get their name, photo and
phone updated; passwords are only used when an account is created.

Examples:
  # Apply one account
  cityfix apply -f staff.yaml

  # Several resources separated by ---
  cityfix apply -f team.yaml

Resource format:
  apiVersion: cityfix/v1
  kind: Staff            # or Admin
  metadata:
    name: road-crew-1
  spec:
    name: Sam Rivera
    email: sam@city.example
    password: change-me
    phone: "555-0100"`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// Resource is one account document
type Resource struct {
	APIVersion string             `yaml:"apiVersion"`
	Kind       string             `yaml:"kind"`
	Metadata   ResourceMetadata   `yaml:"metadata"`
	Spec       users.AccountInput `yaml:"spec"`
}

type ResourceMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// roleForKind maps a resource kind to the account role it manages
func roleForKind(kind string) (types.Role, error) {
	switch kind {
	case "Staff":
		return types.RoleStaff, nil
	case "Admin":
		return types.RoleAdmin, nil
	default:
		return "", fmt.Errorf("unsupported resource kind: %s", kind)
	}
}

// parseResources decodes every YAML document in r
func parseResources(r io.Reader) ([]Resource, error) {
	dec := yaml.NewDecoder(r)
	var out []Resource
	for {
		var res Resource
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		if res.Kind == "" && res.Spec.Email == "" {
			// Empty document
			continue
		}
		if _, err := roleForKind(res.Kind); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Applier is the account operation apply needs
type Applier interface {
	Apply(role types.Role, in users.AccountInput) (*types.User, bool, error)
}

func applyResources(svc Applier, resources []Resource, out io.Writer) error {
	for _, res := range resources {
		role, _ := roleForKind(res.Kind)
		user, created, err := svc.Apply(role, res.Spec)
		if err != nil {
			return fmt.Errorf("failed to apply %s %q: %w", res.Kind, res.Metadata.Name, err)
		}
		verb := "updated"
		if created {
			verb = "created"
		}
		fmt.Fprintf(out, "✓ %s %s: %s (ID: %s)\n", res.Kind, verb, user.Email, user.ID)
	}
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	resources, err := parseResources(f)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		return fmt.Errorf("no resources found in %s", filename)
	}

	svc, closeFn, err := openAccounts(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	return applyResources(svc, resources, cmd.OutOrStdout())
}

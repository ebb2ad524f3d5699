package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/openpaint/cloudsync/cloud"
)

// ProjectsCmd groups project listing and creation.
var ProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List and create cloud projects",
	Long: `List and create cloud projects.

Examples:
  opsync projects list
  opsync projects list --search sofa
  opsync projects create "Living room sofa"`,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your cloud projects",
	RunE:  runProjectsList,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create an empty cloud project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsCreate,
}

var (
	projectsSearchFlag string
	projectsJSONFlag   bool
)

func init() {
	ProjectsCmd.AddCommand(projectsListCmd)
	ProjectsCmd.AddCommand(projectsCreateCmd)
	projectsListCmd.Flags().StringVar(&projectsSearchFlag, "search", "", "Filter projects by title substring")
	projectsListCmd.Flags().BoolVar(&projectsJSONFlag, "json", false, "Print projects as JSON")
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ownerID, err := eng.ownerID()
	if err != nil {
		return err
	}

	projects, err := eng.client.ListProjects(ctx, ownerID, projectsSearchFlag)
	if err != nil {
		if cerr, ok := cloud.AsCloudError(err); ok {
			pterm.Error.Println(cerr.UserMessage)
		}
		return err
	}

	if projectsJSONFlag {
		return printJSON(projects)
	}

	if len(projects) == 0 {
		pterm.Info.Println("No cloud projects found")
		return nil
	}

	rows := pterm.TableData{{"ID", "Title", "Updated"}}
	for _, p := range projects {
		updated := ""
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{p.ProjectID, p.Title, updated})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	title := args[0]

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ownerID, err := eng.ownerID()
	if err != nil {
		return err
	}

	projectID, err := cloud.EnsureProject(ctx, eng.client, cloud.SaveInput{
		OwnerID:     ownerID,
		ProjectName: title,
	})
	if err != nil {
		if cerr, ok := cloud.AsCloudError(err); ok {
			pterm.Error.Println(cerr.UserMessage)
		}
		return err
	}

	pterm.Success.Printf("Created project %s\n", projectID)
	return nil
}

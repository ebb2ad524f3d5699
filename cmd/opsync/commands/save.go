package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/openpaint/cloudsync/cloud"
	"github.com/openpaint/cloudsync/errors"
)

// projectFile is the on-disk project description consumed by `opsync save`.
// View image paths are resolved relative to the project file.
type projectFile struct {
	ProjectID     string                     `json:"projectId,omitempty"`
	ProjectName   string                     `json:"projectName"`
	CurrentViewID string                     `json:"currentViewId,omitempty"`
	ViewOrder     []string                   `json:"viewOrder"`
	Views         map[string]projectFileView `json:"views"`
	Metadata      map[string]string          `json:"metadata,omitempty"`
}

type projectFileView struct {
	State            json.RawMessage `json:"state"`
	ImageFile        string          `json:"imageFile,omitempty"`
	ContentType      string          `json:"contentType,omitempty"`
	ExternalImageURL string          `json:"externalImageUrl,omitempty"`
}

// SaveCmd pushes a local project to the cloud.
var SaveCmd = &cobra.Command{
	Use:   "save <project-file>",
	Short: "Push a local project to the cloud",
	Long: `Push a local project to the cloud store.

Reads a project file describing views, their editor state, and their image
files. Images are hashed and uploaded only when the cloud store does not
already hold identical bytes; view and manifest patches use optimistic
concurrency and retry once on conflict.

The first save of a project (no projectId in the file) creates it and prints
the assigned ID; put that ID back into the project file for later saves.

Examples:
  opsync save ./project.json
  opsync save ./project.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var saveJSONFlag bool

func init() {
	SaveCmd.Flags().BoolVar(&saveJSONFlag, "json", false, "Print the save result as JSON")
}

func loadProjectFile(path string) (*projectFile, cloud.SaveInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cloud.SaveInput{}, errors.Wrap(err, "failed to read project file")
	}

	var pf projectFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, cloud.SaveInput{}, errors.Wrap(err, "project file is not valid JSON")
	}
	if pf.ProjectName == "" {
		return nil, cloud.SaveInput{}, errors.New("project file is missing projectName")
	}

	baseDir := filepath.Dir(path)
	views := make(map[string]cloud.ViewInput, len(pf.Views))
	for viewID, view := range pf.Views {
		input := cloud.ViewInput{
			State:            view.State,
			ContentType:      view.ContentType,
			ExternalImageURL: view.ExternalImageURL,
		}
		if view.ImageFile != "" {
			imagePath := view.ImageFile
			if !filepath.IsAbs(imagePath) {
				imagePath = filepath.Join(baseDir, imagePath)
			}
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return nil, cloud.SaveInput{}, errors.Wrapf(err, "failed to read image for view %s", viewID)
			}
			input.ImageData = data
		}
		views[viewID] = input
	}

	return &pf, cloud.SaveInput{
		ProjectID:     pf.ProjectID,
		ProjectName:   pf.ProjectName,
		CurrentViewID: pf.CurrentViewID,
		ViewOrder:     pf.ViewOrder,
		Views:         views,
		Metadata:      pf.Metadata,
	}, nil
}

func runSave(cmd *cobra.Command, args []string) error {
	started := time.Now()
	ctx := context.Background()

	_, input, err := loadProjectFile(args[0])
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ownerID, err := eng.ownerID()
	if err != nil {
		return err
	}
	input.OwnerID = ownerID

	spinner, _ := pterm.DefaultSpinner.Start("Syncing project to cloud...")

	projectID, err := cloud.EnsureProject(ctx, eng.client, input)
	if err != nil {
		spinner.Fail("Cloud sync failed")
		return reportCloudFailure(cloud.OpSave, started, err)
	}
	created := input.ProjectID == ""
	input.ProjectID = projectID

	result, err := eng.session(projectID).Save(ctx, input)
	if err != nil {
		spinner.Fail("Cloud sync failed")
		return reportCloudFailure(cloud.OpSave, started, err)
	}
	spinner.Success(cloud.MsgCloudSuccess)

	if created {
		pterm.Info.Printf("Created cloud project %s — add \"projectId\": %q to your project file\n",
			projectID, projectID)
	}

	if saveJSONFlag {
		return printJSON(struct {
			cloud.OpResult
			Save *cloud.SaveResult `json:"save"`
		}{
			OpResult: cloud.Success(cloud.OpSave, result.RequestID, started),
			Save:     result,
		})
	}

	pterm.Printf("Project:          %s\n", projectID)
	pterm.Printf("Manifest version: %d\n", result.ManifestVersion)
	pterm.Printf("Views synced:     %d\n", len(result.SyncedViewIDs))
	pterm.Printf("Assets uploaded:  %d (%s)\n",
		len(result.UploadedAssetHashes), formatBytes(eng.telemetry.UploadedBytes))
	return nil
}

// reportCloudFailure prints the normalized failure and returns an error so
// the process exits non-zero.
func reportCloudFailure(op cloud.Operation, started time.Time, err error) error {
	cerr, ok := cloud.AsCloudError(err)
	if !ok {
		return err
	}

	if saveJSONFlag || loadJSONFlag {
		_ = printJSON(cloud.Failure(op, "", started, cerr))
	} else {
		pterm.Error.Println(cerr.UserMessage)
		if cerr.RequiresRelogin {
			pterm.Info.Println("Run 'opsync login' to sign in again.")
		}
	}
	return err
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

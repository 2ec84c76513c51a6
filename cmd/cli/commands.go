package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/go-biosite/pkg/app"
	"github.com/wadjakorntonsri/go-biosite/pkg/config"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/classifier"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

// exportFile is the JSON document written by export and read by import.
type exportFile struct {
	Biosite  domain.Biosite   `json:"biosite"`
	Links    []domain.Link    `json:"links"`
	Sections []domain.Section `json:"sections"`
}

var (
	exportBiosite string
	importFile    string
	previewSlug   string
	classifyLink  domain.Link
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a biosite with all its links and sections as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runExport(cmd, a.Repo, exportBiosite, cmd.OutOrStdout())
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Recreate a biosite from an export file",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(importFile)
		if err != nil {
			return errors.Wrap(err, "open import file")
		}
		defer f.Close()

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := runImport(cmd, a.Repo, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records\n", n)
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Show the category a link would get and the rule that decided it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClassify(classifyLink, cmd.OutOrStdout())
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the assembled public page of a biosite",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.Biosites.GetBiositeBySlug(cmd.Context(), previewSlug)
		if err != nil {
			return err
		}
		page, err := a.Biosites.Preview(cmd.Context(), b.ID)
		if err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), page)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportBiosite, "biosite", "", "biosite ID to export")
	_ = exportCmd.MarkFlagRequired("biosite")

	importCmd.Flags().StringVar(&importFile, "file", "", "JSON file to import")
	_ = importCmd.MarkFlagRequired("file")

	previewCmd.Flags().StringVar(&previewSlug, "slug", "", "biosite slug")
	_ = previewCmd.MarkFlagRequired("slug")

	classifyCmd.Flags().StringVar(&classifyLink.Label, "label", "", "link label")
	classifyCmd.Flags().StringVar(&classifyLink.URL, "url", "", "link URL")
	classifyCmd.Flags().StringVar(&classifyLink.Icon, "icon", "", "icon reference")
	classifyCmd.Flags().StringVar(&classifyLink.LinkType, "type", "", "explicit link type")
}

func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return app.New(cfg, logger)
}

func runExport(cmd *cobra.Command, repo ports.BiositeRepository, biositeID string, w io.Writer) error {
	b, err := repo.GetBiosite(cmd.Context(), biositeID)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.NotFound("biosite")
	}
	snap, err := repo.Dump(cmd.Context(), biositeID)
	if err != nil {
		return errors.Wrap(err, "export failed")
	}
	return writeIndented(w, exportFile{Biosite: *b, Links: snap.Links, Sections: snap.Sections})
}

// runImport creates the biosite, links and sections of an export file,
// skipping records whose ID already exists.
func runImport(cmd *cobra.Command, repo ports.BiositeRepository, r io.Reader) (int, error) {
	var in exportFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return 0, errors.Wrap(err, "decode import file")
	}
	ctx := cmd.Context()
	count := 0

	existing, err := repo.GetBiosite(ctx, in.Biosite.ID)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		if err := repo.CreateBiosite(ctx, &in.Biosite); err != nil {
			return 0, err
		}
		count++
	}

	for i := range in.Sections {
		s := &in.Sections[i]
		if found, _ := repo.GetSection(ctx, s.ID); found != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Skipping existing section: %s\n", s.ID)
			continue
		}
		s.BiositeID = in.Biosite.ID
		if err := repo.CreateSection(ctx, s); err != nil {
			return count, err
		}
		count++
	}

	for i := range in.Links {
		l := &in.Links[i]
		if found, _ := repo.GetLink(ctx, l.ID); found != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Skipping existing link: %s\n", l.ID)
			continue
		}
		l.BiositeID = in.Biosite.ID
		if err := repo.CreateLink(ctx, l); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func runClassify(link domain.Link, w io.Writer) error {
	category, rule := classifier.ClassifyWithRule(link)
	out := ports.Classification{
		Category:   category,
		Rule:       rule,
		Icon:       classifier.ResolveIcon(link.Icon),
		Assignable: classifier.Assignable(link, category),
	}
	if category == domain.CategoryWhatsApp {
		contact := classifier.ParseWhatsApp(link.URL)
		out.WhatsApp = &contact
	}
	return writeIndented(w, out)
}

func writeIndented(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

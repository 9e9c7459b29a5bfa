// epubinfo prints what epubterm sees in a book: metadata, spine order,
// per-chapter word counts and the page count for a given viewport.
//
// Usage:
//
//	epubinfo [--width 80] [--height 23] <epub-file-path>
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuanying/epubterm/internal/book"
	"github.com/yuanying/epubterm/internal/paginate"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "epubinfo <epub-file-path>",
		Short:        "Show the structure of an EPUB as epubterm reads it",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			wpm, _ := cmd.Flags().GetInt("words-per-minute")

			b, warnings, err := book.Load(cmd.Context(), args[0], book.Options{})
			if err != nil {
				return err
			}
			defer b.Close()

			vp := paginate.Viewport{Width: width, Height: height}.Clamp()
			writeInfo(cmd.OutOrStdout(), b, warnings, vp, wpm)
			return nil
		},
	}
	cmd.Flags().Int("width", 80, "Viewport width in cells")
	cmd.Flags().Int("height", 23, "Viewport height in lines")
	cmd.Flags().IntP("words-per-minute", "w", paginate.DefaultWPM, "Reading speed used for the time estimate")
	return cmd
}

func writeInfo(w io.Writer, b *book.Book, warnings []book.Warning, vp paginate.Viewport, wpm int) {
	md := b.Metadata

	fmt.Fprintf(w, "File: %s\n\n", b.ID)
	fmt.Fprintln(w, "--- Metadata ---")
	fmt.Fprintf(w, "Title:       %s\n", md.Title)
	if md.LanguageName != "" {
		fmt.Fprintf(w, "Language:    %s (%s)\n", md.LanguageName, md.Language)
	} else {
		fmt.Fprintf(w, "Language:    %s\n", md.Language)
	}
	fmt.Fprintf(w, "Identifier:  %s\n", md.Identifier)
	fmt.Fprintf(w, "Version:     %s\n", md.Version)
	if md.Publisher != "" {
		fmt.Fprintf(w, "Publisher:   %s\n", md.Publisher)
	}
	if md.Date != "" {
		fmt.Fprintf(w, "Date:        %s\n", md.Date)
	}
	for _, c := range md.Creators {
		role := c.Role
		if role == "" {
			role = "aut"
		}
		fmt.Fprintf(w, "Creator:     %s (%s)\n", c.Name, role)
	}
	if len(md.Subjects) > 0 {
		fmt.Fprintf(w, "Subjects:    %s\n", strings.Join(md.Subjects, ", "))
	}
	if cv := md.Cover; cv != nil {
		fmt.Fprintf(w, "Cover:       %s [%s, via %s]", cv.Href, cv.MediaType, cv.DetectionMethod)
		if cv.Width > 0 {
			fmt.Fprintf(w, " %dx%d", cv.Width, cv.Height)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\n--- Spine (%d documents) ---\n", len(b.Chapters))
	for _, ch := range b.Chapters {
		flags := ""
		if !ch.Linear {
			flags += " [non-linear]"
		}
		if ch.Placeholder {
			flags += " [placeholder]"
		}
		title := ch.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%3d. %-40s %6d words  %s%s\n", ch.Index+1, title, ch.Words(), ch.Href, flags)
	}

	pages := paginate.Paginate(b, vp)
	fmt.Fprintln(w, "\n--- Pagination ---")
	fmt.Fprintf(w, "Viewport:    %dx%d\n", vp.Width, vp.Height)
	fmt.Fprintf(w, "Pages:       %d\n", len(pages))
	fmt.Fprintf(w, "Words:       %d\n", b.Words())
	fmt.Fprintf(w, "Reading:     %s at %d wpm\n", paginate.RemainingTime(pages, 0, wpm).Round(time.Second), wpm)

	if len(warnings) > 0 {
		fmt.Fprintf(w, "\n--- Warnings (%d) ---\n", len(warnings))
		for _, warn := range warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

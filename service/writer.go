package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"lecture2obs/config"
	"lecture2obs/constant"
	"lecture2obs/dto"
)

// ErrVaultWrite wraps filesystem failures while emitting the note pair.
var ErrVaultWrite = errors.New("vault write failed")

// NoteWriter renders one session's summary and raw transcript into the
// vault as two linked Markdown files. Notes are written once and never
// silently merged: name collisions get a numeric suffix.
type NoteWriter interface {
	WriteNotes(ctx context.Context, summary, transcript string, meta dto.NoteMetadata) (string, string, error)
}

type noteWriter struct {
	vault    config.Vault
	template config.NoteTemplate
}

func NewNoteWriter(vault config.Vault, template config.NoteTemplate) NoteWriter {
	return &noteWriter{vault: vault, template: template}
}

func (w *noteWriter) WriteNotes(ctx context.Context, summary, transcript string, meta dto.NoteMetadata) (string, string, error) {
	vaultPath := w.vault.Path
	if vaultPath == "" {
		vaultPath = "."
	}
	if _, err := os.Stat(vaultPath); err != nil {
		// A missing vault must not fail the pipeline: fall back to the
		// working directory and surface the discrepancy.
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return "", "", fmt.Errorf("%w: %v", ErrVaultWrite, cwdErr)
		}
		zerolog.Ctx(ctx).Warn().
			Str("vault", vaultPath).
			Str("fallback", cwd).
			Msg("vault path does not exist, writing notes to working directory")
		vaultPath = cwd
	}

	inboxDir := filepath.Join(vaultPath, w.vault.InboxFolder)
	sourceDir := filepath.Join(vaultPath, w.vault.SourceFolder)
	for _, dir := range []string{inboxDir, sourceDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrVaultWrite, err)
		}
	}

	base := safeFilename(meta.Title)

	transcriptPath := uniquePath(filepath.Join(sourceDir, base+" - Transcript.md"))
	if err := os.WriteFile(transcriptPath, []byte(buildTranscriptNote(transcript, meta)), 0o644); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrVaultWrite, err)
	}

	transcriptRef := strings.TrimSuffix(filepath.Base(transcriptPath), ".md")
	summaryPath := uniquePath(filepath.Join(inboxDir, base+".md"))
	summaryNote := buildSummaryNote(summary, meta, transcriptRef, w.template)
	if err := os.WriteFile(summaryPath, []byte(summaryNote), 0o644); err != nil {
		// Keep the pair atomic: a failed summary write removes the
		// transcript note written a moment ago.
		_ = os.Remove(transcriptPath)
		return "", "", fmt.Errorf("%w: %v", ErrVaultWrite, err)
	}

	return summaryPath, transcriptPath, nil
}

func buildSummaryNote(summary string, meta dto.NoteMetadata, transcriptRef string, template config.NoteTemplate) string {
	var b strings.Builder
	b.WriteString(meta.Date + "\n\n")
	b.WriteString("Status: " + template.Status + "\n\n")
	if meta.Course != "" {
		b.WriteString("Tags: " + formatTag(meta.Course, template.TagStyle) + "\n\n")
	}
	b.WriteString("Transcript: [[" + transcriptRef + "]]\n\n")
	b.WriteString("# " + meta.Title + "\n\n")
	b.WriteString(summary)
	return b.String()
}

func buildTranscriptNote(transcript string, meta dto.NoteMetadata) string {
	var b strings.Builder
	b.WriteString(meta.Date + "\n\n")
	b.WriteString("Status: #source\n\n")
	b.WriteString("# " + meta.Title + " - Full Transcript\n\n")
	b.WriteString(transcript)
	return b.String()
}

func formatTag(value string, style constant.TagStyle) string {
	if style == constant.TagStyleHashtag {
		return "#" + value
	}
	return "[[" + value + "]]"
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
var collapseRuns = regexp.MustCompile(`[\s-]+`)

func safeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(title, "-")
	name = collapseRuns.ReplaceAllString(name, " ")
	return strings.Trim(name, " -")
}

// uniquePath appends _1, _2, ... until the name is unused.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

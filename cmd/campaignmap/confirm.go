package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"campaignmap/internal"
	"campaignmap/internal/pipeline"
)

// promptConfirmer asks on the terminal whether to accept, edit or reject a
// proposed mapping.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *promptConfirmer) Confirm(ctx context.Context, p pipeline.Proposal) (internal.Mapping, error) {
	printProposal(c.out, p)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		answer, err := c.ask("accept mapping? [y]es / [e]dit / [n]o: ")
		if err != nil {
			return nil, pipeline.ErrImportCancelled
		}
		switch strings.ToLower(answer) {
		case "y", "yes", "s", "sim":
			return p.Candidate.Clone(), nil
		case "e", "edit":
			return c.edit(p)
		case "n", "no", "nao", "não", "":
			return nil, pipeline.ErrImportCancelled
		}
	}
}

// edit walks every field. Enter keeps the current header, "-" clears it, and a
// column number or header name picks a new one.
func (c *promptConfirmer) edit(p pipeline.Proposal) (internal.Mapping, error) {
	out := p.Candidate.Clone()
	for _, field := range internal.AllFields {
		for {
			answer, err := c.ask(fmt.Sprintf("  %s [%s]: ", field, orDash(out[field])))
			if err != nil {
				return nil, pipeline.ErrImportCancelled
			}
			if answer == "" {
				break
			}
			if answer == "-" {
				delete(out, field)
				break
			}
			if header, ok := pickHeader(p.Headers, answer); ok {
				out[field] = header
				break
			}
			fmt.Fprintf(c.out, "  no column %q\n", answer)
		}
	}
	return out, nil
}

func (c *promptConfirmer) ask(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func pickHeader(headers []string, answer string) (string, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(headers) {
			return headers[n-1], true
		}
		return "", false
	}
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), answer) {
			return h, true
		}
	}
	return "", false
}

func printProposal(w io.Writer, p pipeline.Proposal) {
	if p.Filename != "" {
		fmt.Fprintf(w, "file: %s\n", p.Filename)
	}
	if p.TemplateID != "" {
		fmt.Fprintf(w, "template: %s\n", p.TemplateID)
	} else {
		fmt.Fprintln(w, "template: none, suggested mapping")
	}

	fmt.Fprintln(w, "columns:")
	for i, h := range p.Headers {
		fmt.Fprintf(w, "  %2d. %s (%s)\n", i+1, h, p.ColumnTypes[h])
	}

	fmt.Fprintln(w, "mapping:")
	for _, field := range internal.AllFields {
		fmt.Fprintf(w, "  %-15s -> %s\n", field, orDash(p.Candidate[field]))
	}

	for _, h := range pipeline.ConflictHeaders(p.Conflicts) {
		names := make([]string, 0, len(p.Conflicts[h]))
		for _, f := range p.Conflicts[h] {
			names = append(names, string(f))
		}
		fmt.Fprintf(w, "conflict: %q suggested for %s\n", h, strings.Join(names, ", "))
	}
	for _, problem := range p.Problems {
		fmt.Fprintf(w, "problem: %s\n", problem)
	}
}

// parseMapping reads "campaignName=Nome,date=Data" into a mapping.
func parseMapping(raw string) (internal.Mapping, error) {
	out := internal.Mapping{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, header, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("mapping entry %q is not field=Header", part)
		}
		field := internal.Field(strings.TrimSpace(key))
		if !field.Valid() {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		if header = strings.TrimSpace(header); header == "" {
			return nil, fmt.Errorf("empty header for %s", field)
		}
		out[field] = header
	}
	return out, nil
}

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Upload is what a Reporter receives: the report plus run metadata.
type Upload struct {
	RunID    string
	Commit   string
	Branch   string
	Artifact CoverageArtifact
}

// Reporter publishes a coverage report.
type Reporter interface {
	Name() string
	Upload(ctx context.Context, u Upload) error
}

// Report hands the coverage artifact to every configured reporter, once
// each, in order. The report file must exist before any upload starts.
func (o *Orchestrator) Report(ctx context.Context, runID string, artifact CoverageArtifact) error {
	if _, err := os.Stat(artifact.Path); err != nil {
		return stageErr(StageReport, 0, fmt.Errorf("%w: %s", ErrCoverageMissing, artifact.Path))
	}

	reporters, err := o.resolveReporters()
	if err != nil {
		return stageErr(StageReport, 0, err)
	}
	if len(reporters) == 0 {
		logf("report: no reporters configured, skipping")
		return nil
	}

	u := Upload{
		RunID:    runID,
		Commit:   gitRevParseHEAD(ctx, o.runner, o.cfg.Project.Root),
		Branch:   gitCurrentBranch(ctx, o.runner, o.cfg.Project.Root),
		Artifact: artifact,
	}
	for _, r := range reporters {
		logf("report: uploading %s via %s", artifact.Path, r.Name())
		if err := r.Upload(ctx, u); err != nil {
			return stageErr(StageReport, 0, fmt.Errorf("%s: %w", r.Name(), err))
		}
		logf("report: %s done", r.Name())
	}
	return nil
}

// resolveReporters returns the reporters given to New, or builds them
// from Config.Report.
func (o *Orchestrator) resolveReporters() ([]Reporter, error) {
	if o.reporters != nil {
		return o.reporters, nil
	}
	var out []Reporter
	rc := o.cfg.Report
	if !rc.Codecov.Disabled {
		if strings.TrimSpace(rc.Codecov.Token) == "" {
			return nil, ErrMissingToken
		}
		out = append(out, NewCodecovUploader(rc.Codecov.URL, rc.Codecov.Token, o.client))
	}
	if rc.Archive.Enabled() {
		a, err := NewS3Archiver(rc.Archive)
		if err != nil {
			return nil, fmt.Errorf("configuring archive: %w", err)
		}
		out = append(out, a)
	}
	o.reporters = out
	return out, nil
}

// CodecovUploader posts the XML report to a coverage collection service
// authenticated with a static bearer token.
type CodecovUploader struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewCodecovUploader returns an uploader for endpoint. A nil client
// uses http.DefaultClient.
func NewCodecovUploader(endpoint, token string, client *http.Client) *CodecovUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &CodecovUploader{endpoint: endpoint, token: token, client: client}
}

// Name implements Reporter.
func (c *CodecovUploader) Name() string { return "codecov" }

// Upload implements Reporter. It makes exactly one request.
func (c *CodecovUploader) Upload(ctx context.Context, u Upload) error {
	body, err := os.ReadFile(u.Artifact.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", u.Artifact.Path, err)
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parsing upload url: %w", err)
	}
	q := endpoint.Query()
	q.Set("build", u.RunID)
	if u.Commit != "" {
		q.Set("commit", u.Commit)
	}
	if u.Branch != "" {
		q.Set("branch", u.Branch)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrUploadFailed, resp.Status, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

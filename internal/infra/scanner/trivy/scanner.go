package trivy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
)

// Name identifies this connector in reports and policy overrides
const Name = "trivy"

const defaultToolImage = "aquasec/trivy:latest"

// Scanner invokes trivy in a container against the local docker daemon and
// normalizes its JSON report.
type Scanner struct {
	ToolImage  string
	TempDir    string
	Severities findings.SeverityMap
}

func New(toolImage, tempDir string, severities findings.SeverityMap) *Scanner {
	if toolImage == "" {
		toolImage = defaultToolImage
	}
	if tempDir == "" {
		tempDir = filepath.Join(".", "temp")
	}
	return &Scanner{ToolImage: toolImage, TempDir: tempDir, Severities: severities}
}

func (s *Scanner) Name() string { return Name }

func (s *Scanner) Scan(ctx context.Context, image, digest string) (findings.ScanReport, error) {
	start := time.Now()

	if err := os.MkdirAll(s.TempDir, 0o755); err != nil {
		return findings.ScanReport{}, fmt.Errorf("trivy temp dir: %w", err)
	}
	artifactPath := filepath.Join(s.TempDir, fmt.Sprintf("trivy-%s.json", uuid.New().String()))

	absDir, err := filepath.Abs(filepath.Dir(artifactPath))
	if err != nil {
		return findings.ScanReport{}, err
	}

	cmd := exec.CommandContext(ctx, "docker", "run", "--rm",
		"-v", "/var/run/docker.sock:/var/run/docker.sock",
		"-v", fmt.Sprintf("%s:/out", absDir),
		s.ToolImage,
		"image", "--scanners", "vuln",
		"--format", "json",
		"-o", "/out/"+filepath.Base(artifactPath),
		image,
	)
	out, err := cmd.CombinedOutput()
	duration := time.Since(start).Milliseconds()
	if err != nil {
		os.Remove(artifactPath)
		if ctx.Err() != nil {
			return findings.ScanReport{}, ctx.Err()
		}
		return findings.ScanReport{}, fmt.Errorf("trivy run error: %v, output=%s", err, string(out))
	}

	rep, err := parseArtifact(artifactPath)
	if err != nil {
		return findings.ScanReport{}, err
	}

	return findings.ScanReport{
		Scanner:    Name,
		Image:      image,
		Digest:     digest,
		ScannedAt:  start,
		Findings:   normalize(rep, s.Severities),
		Status:     findings.ScanSucceeded,
		DurationMS: duration,
		RawPath:    artifactPath,
	}, nil
}

// parseArtifact reads and decodes the tool output, removing the file on any
// failure so broken artifacts never pile up in the temp dir
func parseArtifact(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		os.Remove(path)
		return Report{}, fmt.Errorf("trivy report read: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		os.Remove(path)
		return Report{}, fmt.Errorf("trivy report parse: %w", err)
	}
	return rep, nil
}

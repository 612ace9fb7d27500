package smartcontext

import (
	"bufio"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ollamageek/gateway/pkg/models"
)

// fileReferencePatterns are anchored regular expressions for explicit file
// references in a prompt (spec §4.4 step 2). Each capture group 1 is a
// candidate relative or absolute path.
var fileReferencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|[\s\x60'"])([\w./-]+\.(?:go|py|js|jsx|ts|tsx|java|cpp|hpp|rs|rb|sql|sh|yaml|yml|json))(?:[\s\x60'":,.]|$)`),
	regexp.MustCompile(`(?:file|path)\s*[:=]\s*([\w./-]+)`),
}

var sourceExtensions = []string{".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".cpp", ".hpp", ".rs", ".rb"}

var codingContentKeywords = []string{"code", "function", "file", "script", "program"}
var gitKeywords = []string{"git", "commit", "branch", "diff", "status"}
var architectureKeywords = []string{"architecture", "design"}

// explicitFileReferences extracts file paths mentioned in content and keeps
// only those that resolve on disk, relative to cwd (spec §4.4 step 2).
func explicitFileReferences(content, cwd string) []models.FileRef {
	seen := map[string]bool{}
	var refs []models.FileRef
	for _, pattern := range fileReferencePatterns {
		for _, match := range pattern.FindAllStringSubmatch(content, -1) {
			candidate := match[1]
			if seen[candidate] {
				continue
			}
			resolved := candidate
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(cwd, resolved)
			}
			if _, err := os.Stat(resolved); err != nil {
				continue
			}
			seen[candidate] = true
			refs = append(refs, models.FileRef{Path: candidate, Origin: models.OriginExplicitReference})
		}
	}
	return refs
}

// enumerateProjectFiles lists up to maxCwd source files from cwd and up to
// maxParent from its parent when no explicit references were found (spec
// §4.4 step 2: "enumerate the current working directory and (best-effort)
// its parent for up to 5+3 files").
func enumerateProjectFiles(cwd string, maxCwd, maxParent int) []models.FileRef {
	refs := listSourceFiles(cwd, maxCwd, models.OriginProjectStructure)
	if parent := filepath.Dir(cwd); parent != cwd {
		refs = append(refs, listSourceFiles(parent, maxParent, models.OriginParentProjectStructure)...)
	}
	return refs
}

func listSourceFiles(dir string, max int, origin models.FileOrigin) []models.FileRef {
	if max <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var refs []models.FileRef
	for _, entry := range entries {
		if entry.IsDir() || len(refs) >= max {
			continue
		}
		if hasSourceExtension(entry.Name()) {
			refs = append(refs, models.FileRef{Path: entry.Name(), Origin: origin})
		}
	}
	return refs
}

func hasSourceExtension(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range sourceExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

// manifestPaths maps a detected language to the dependency manifest file
// most likely to describe it (SPEC_FULL.md generalizes beyond
// package.json). The language comes from the prompt via the local
// detectLanguageHint, not from the classifier.
var manifestPaths = map[models.Language]string{
	models.LangJavaScript: "package.json",
	models.LangTypeScript: "package.json",
	models.LangGo:         "go.mod",
	models.LangPython:     "requirements.txt",
	models.LangRust:       "Cargo.toml",
}

// readDependencies best-effort parses the manifest for up to 5 runtime and
// 3 dev dependency names (spec §4.4 step 2). Unsupported/missing manifests
// return nil, not an error.
func readDependencies(cwd string, language models.Language) *models.Dependencies {
	name, ok := manifestPaths[language]
	if !ok {
		name = "package.json"
	}
	path := filepath.Join(cwd, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	switch name {
	case "package.json":
		return parsePackageJSON(data)
	case "go.mod":
		return parseGoMod(data)
	case "requirements.txt":
		return parseRequirementsTxt(data)
	case "Cargo.toml":
		return parseCargoToml(data)
	default:
		return nil
	}
}

func parsePackageJSON(data []byte) *models.Dependencies {
	var manifest struct{ Dependencies, DevDependencies map[string]string }
	if json.Unmarshal(data, &manifest) != nil || len(manifest.Dependencies)+len(manifest.DevDependencies) == 0 {
		return nil
	}
	return &models.Dependencies{Runtime: sortedNames(manifest.Dependencies, 5), Dev: sortedNames(manifest.DevDependencies, 3)}
}

func sortedNames(m map[string]string, limit int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[:min(len(names), limit)]
}

func parseRequirementsTxt(data []byte) *models.Dependencies {
	var runtime []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() && len(runtime) < 5 {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		runtime = append(runtime, line)
	}
	if len(runtime) == 0 {
		return nil
	}
	return &models.Dependencies{Runtime: runtime}
}

func parseGoMod(data []byte) *models.Dependencies {
	var runtime []string
	inRequire := false
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() && len(runtime) < 5 {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "require ("):
			inRequire = true
		case line == ")" && inRequire:
			inRequire = false
		case inRequire || strings.HasPrefix(line, "require "):
			fields := strings.Fields(strings.TrimPrefix(line, "require "))
			if len(fields) > 0 && !strings.Contains(fields[0], ")") {
				runtime = append(runtime, fields[0])
			}
		}
	}
	if len(runtime) == 0 {
		return nil
	}
	return &models.Dependencies{Runtime: runtime}
}

func parseCargoToml(data []byte) *models.Dependencies {
	var runtime, dev []string
	section := ""
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			section = line
			continue
		}
		name, _, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		switch {
		case section == "[dependencies]" && len(runtime) < 5:
			runtime = append(runtime, name)
		case section == "[dev-dependencies]" && len(dev) < 3:
			dev = append(dev, name)
		}
	}
	if len(runtime) == 0 && len(dev) == 0 {
		return nil
	}
	return &models.Dependencies{Runtime: runtime, Dev: dev}
}

// gitStatus invokes `git status --porcelain` in cwd and records the change
// count plus the first three lines (spec §4.4 step 2). Any error (not a
// repo, git missing) yields nil rather than propagating.
func gitStatus(cwd string) *models.GitStatus {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = cwd
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return &models.GitStatus{ChangedCount: 0, Sample: nil}
	}
	sample := lines
	if len(sample) > 3 {
		sample = sample[:3]
	}
	return &models.GitStatus{ChangedCount: len(lines), Sample: sample}
}

// Package routes classifies request paths into access categories and owns the
// redirect contract shared by the gatekeeper and the session contexts.
package routes

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is the access category of a request path
type Category int

const (
	Public Category = iota
	Protected
	Admin
	AdminPublic
	Asset
)

func (c Category) String() string {
	switch c {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Admin:
		return "admin"
	case AdminPublic:
		return "admin-public"
	case Asset:
		return "asset"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Well-known paths
const (
	HomePath           = "/"
	LoginPath          = "/login"
	DefaultLandingPath = "/exchange"
	AdminLoginPath     = "/admin/login"
	AdminHomePath      = "/admin"
)

// Table is the rule set used by the Classifier. It can be overridden from YAML.
type Table struct {
	PublicPaths       []string `yaml:"public_paths"`
	FrameworkPrefixes []string `yaml:"framework_prefixes"`
	AdminRoot         string   `yaml:"admin_root"`
	AdminPublicPaths  []string `yaml:"admin_public_paths"`
	ProtectedRoots    []string `yaml:"protected_roots"`
	AssetExtensions   []string `yaml:"asset_extensions"`
}

// DefaultTable returns the built-in rule set
func DefaultTable() Table {
	return Table{
		PublicPaths:       []string{"/", "/login", "/support", "/downloads", "/not-found"},
		FrameworkPrefixes: []string{"/_next", "/static", "/images", "/favicon"},
		AdminRoot:         "/admin",
		AdminPublicPaths:  []string{AdminLoginPath},
		ProtectedRoots:    []string{"/exchange", "/me"},
		AssetExtensions: []string{
			"apk", "apng", "avif", "gif", "jpg", "jpeg", "jfif", "pjpeg", "pjp", "png", "svg", "webp", "ico",
			"pdf", "txt", "xml", "json",
			"woff", "woff2", "ttf", "eot",
		},
	}
}

// LoadTable reads a YAML rule file on top of the defaults. Keys missing from the
// file keep their default values. An empty path returns the defaults.
func LoadTable(path string) (Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("failed to read route table: %w", err)
	}

	if err := yaml.Unmarshal(data, &table); err != nil {
		return table, fmt.Errorf("failed to parse route table: %w", err)
	}

	return table, nil
}

// Classifier maps request paths to categories. It holds no mutable state.
type Classifier struct {
	table        Table
	assetPattern *regexp.Regexp
}

// NewClassifier validates the table and compiles the asset pattern
func NewClassifier(table Table) (*Classifier, error) {
	if table.AdminRoot == "" || !strings.HasPrefix(table.AdminRoot, "/") {
		return nil, fmt.Errorf("admin root must be an absolute path, got %q", table.AdminRoot)
	}

	var assetPattern *regexp.Regexp
	if len(table.AssetExtensions) > 0 {
		quoted := make([]string, 0, len(table.AssetExtensions))
		for _, ext := range table.AssetExtensions {
			ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
			if ext == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(ext))
		}
		pattern, err := regexp.Compile(`(?i)\.(` + strings.Join(quoted, "|") + `)$`)
		if err != nil {
			return nil, fmt.Errorf("invalid asset extensions: %w", err)
		}
		assetPattern = pattern
	}

	return &Classifier{table: table, assetPattern: assetPattern}, nil
}

// Default returns a classifier over DefaultTable
func Default() *Classifier {
	c, err := NewClassifier(DefaultTable())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the category of path. path must not carry a query string.
func (c *Classifier) Classify(path string) Category {
	if c.IsAsset(path) {
		return Asset
	}

	if c.isAllowListed(path) {
		return Public
	}

	if c.IsAdminArea(path) {
		if c.IsAdminLogin(path) {
			return AdminPublic
		}
		return Admin
	}

	if c.IsPrivate(path) {
		return Protected
	}

	return Public
}

// IsAsset reports whether path ends in a static asset extension
func (c *Classifier) IsAsset(path string) bool {
	return c.assetPattern != nil && c.assetPattern.MatchString(path)
}

// IsAdminArea reports whether path is the admin root or nested under it
func (c *Classifier) IsAdminArea(path string) bool {
	return underSegment(path, c.table.AdminRoot)
}

// IsAdminLogin reports whether path is one of the admin pages reachable without a session
func (c *Classifier) IsAdminLogin(path string) bool {
	for _, p := range c.table.AdminPublicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// IsPrivate reports whether path is under one of the authenticated-area roots
func (c *Classifier) IsPrivate(path string) bool {
	for _, root := range c.table.ProtectedRoots {
		if underSegment(path, root) {
			return true
		}
	}
	return false
}

// IsLogin reports whether path is the user login page
func (c *Classifier) IsLogin(path string) bool {
	return path == LoginPath
}

func (c *Classifier) isAllowListed(path string) bool {
	for _, p := range c.table.PublicPaths {
		if path == p {
			return true
		}
		// "/" only matches itself, otherwise every path would be public
		if p != "/" && underSegment(path, p) {
			return true
		}
	}

	for _, prefix := range c.table.FrameworkPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// underSegment matches root itself or anything below root/
func underSegment(path, root string) bool {
	if root == "" {
		return false
	}
	return path == root || strings.HasPrefix(path, root+"/")
}

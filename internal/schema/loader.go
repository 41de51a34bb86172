package schema

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/storeysplit/internal/ctxlog"
	"github.com/specialistvlad/storeysplit/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// DefaultProfile is the name of the embedded profile used when no other
// profile claims a schema.
const DefaultProfile = "ifc"

//go:embed profiles/*.hcl
var builtinProfiles embed.FS

// fileRoot decodes all top-level blocks of a profile file.
type fileRoot struct {
	Profiles []*profileBlock `hcl:"profile,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type profileBlock struct {
	Name          string               `hcl:"name,label"`
	Extends       string               `hcl:"extends,optional"`
	Schemas       []string             `hcl:"schemas,optional"`
	Containers    *containersBlock     `hcl:"containers,block"`
	Hierarchy     *hierarchyBlock      `hcl:"hierarchy,block"`
	Roots         *rootsBlock          `hcl:"roots,block"`
	Relationships []*relationshipBlock `hcl:"relationship,block"`
	Entities      []*entityBlock       `hcl:"entity,block"`
	TypeObjects   *typeObjectsBlock    `hcl:"type_objects,block"`
}

type typeObjectsBlock struct {
	Types        []string `hcl:"types,optional"`
	Suffixes     []string `hcl:"suffixes,optional"`
	Attributes   []string `hcl:"attributes,optional"`
	PropertySets string   `hcl:"property_sets,optional"`
}

type containersBlock struct {
	Types          []string `hcl:"types,optional"`
	LabelAttribute string   `hcl:"label_attribute,optional"`
}

type hierarchyBlock struct {
	Root   string   `hcl:"root"`
	Levels []string `hcl:"levels,optional"`
}

type rootsBlock struct {
	Types    []string `hcl:"types,optional"`
	Prefixes []string `hcl:"prefixes,optional"`
	Suffixes []string `hcl:"suffixes,optional"`
}

type relationshipBlock struct {
	Entity   string `hcl:"entity,label"`
	Kind     string `hcl:"kind"`
	Relating string `hcl:"relating"`
	Related  string `hcl:"related"`
}

type entityBlock struct {
	Name       string   `hcl:"name,label"`
	Attributes []string `hcl:"attributes"`
}

// Catalog holds every known profile and selects one per schema identifier.
type Catalog struct {
	profiles []*Profile // search order: user profiles first, then embedded ones
	byName   map[string]*Profile
	specs    map[string]ProfileSpec
	fallback *Profile
}

// Load builds a catalog from the embedded profiles plus any profile files
// found at paths. A path may be a single .hcl file or a directory searched
// recursively. User profiles with the name of an embedded profile replace it.
func Load(ctx context.Context, paths ...string) (*Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Schema profile loading started.", "path_count", len(paths))

	c := &Catalog{
		byName: make(map[string]*Profile),
		specs:  make(map[string]ProfileSpec),
	}
	parser := hclparse.NewParser()

	embedded, err := fs.Glob(builtinProfiles, "profiles/*.hcl")
	if err != nil {
		return nil, err
	}
	var builtins []*Profile
	for _, name := range embedded {
		src, err := builtinProfiles.ReadFile(name)
		if err != nil {
			return nil, err
		}
		file, diags := parser.ParseHCL(src, path.Base(name))
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse embedded profile %s: %w", name, diags)
		}
		profiles, err := c.decode(file.Body, name, nil)
		if err != nil {
			return nil, err
		}
		builtins = append(builtins, profiles...)
	}
	c.fallback = c.byName[DefaultProfile]
	if c.fallback == nil {
		return nil, fmt.Errorf("embedded profile %q is missing", DefaultProfile)
	}

	files, err := findProfileFiles(paths)
	if err != nil {
		return nil, err
	}
	var user []*Profile
	for _, filename := range files {
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse profile file %s: %w", filename, diags)
		}
		profiles, err := c.decode(file.Body, filename, c.fallback)
		if err != nil {
			return nil, err
		}
		user = append(user, profiles...)
	}

	c.profiles = append(c.profiles, user...)
	for _, p := range builtins {
		if c.byName[p.Name] == p {
			c.profiles = append(c.profiles, p)
		}
	}
	c.fallback = c.byName[DefaultProfile]

	logger.Debug("Schema profiles loaded.", "profiles", len(c.profiles), "user_files", len(files))
	return c, nil
}

func (c *Catalog) decode(body hcl.Body, filename string, builtin *Profile) ([]*Profile, error) {
	var root fileRoot
	diags := gohcl.DecodeBody(body, evalContext(builtin), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode profile file %s: %w", filename, diags)
	}

	var out []*Profile
	for _, block := range root.Profiles {
		spec, err := c.translate(block)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		p, err := NewProfile(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		c.byName[p.Name] = p
		c.specs[p.Name] = spec
		out = append(out, p)
	}
	return out, nil
}

// translate turns a decoded block into a spec, starting from the spec of the
// extended profile when one is named. Lists left empty are inherited.
func (c *Catalog) translate(block *profileBlock) (ProfileSpec, error) {
	spec := ProfileSpec{Attributes: make(map[string][]string)}
	if block.Extends != "" {
		base, ok := c.specs[block.Extends]
		if !ok {
			return ProfileSpec{}, fmt.Errorf("profile %q extends unknown profile %q", block.Name, block.Extends)
		}
		spec = base
		spec.Relationships = append([]Relationship(nil), base.Relationships...)
		spec.Attributes = make(map[string][]string, len(base.Attributes))
		for k, v := range base.Attributes {
			spec.Attributes[k] = v
		}
	}
	spec.Name = block.Name

	if len(block.Schemas) > 0 {
		spec.Schemas = block.Schemas
	}
	if b := block.Containers; b != nil {
		if len(b.Types) > 0 {
			spec.ContainerTypes = b.Types
		}
		if b.LabelAttribute != "" {
			spec.LabelAttribute = b.LabelAttribute
		}
	}
	if b := block.Hierarchy; b != nil {
		spec.HierarchyRoot = b.Root
		spec.HierarchyLevels = b.Levels
	}
	if b := block.Roots; b != nil {
		if len(b.Types) > 0 {
			spec.RootTypes = b.Types
		}
		if len(b.Prefixes) > 0 {
			spec.RootPrefixes = b.Prefixes
		}
		if len(b.Suffixes) > 0 {
			spec.RootSuffixes = b.Suffixes
		}
	}
	if b := block.TypeObjects; b != nil {
		if len(b.Types) > 0 {
			spec.TypeObjectTypes = b.Types
		}
		if len(b.Suffixes) > 0 {
			spec.TypeObjectSuffixes = b.Suffixes
		}
		if len(b.Attributes) > 0 {
			spec.TypeObjectAttributes = b.Attributes
		}
		if b.PropertySets != "" {
			spec.TypePropertySets = b.PropertySets
		}
	}
	for _, e := range block.Entities {
		spec.Attributes[strings.ToUpper(e.Name)] = e.Attributes
	}
	for _, r := range block.Relationships {
		rel := Relationship{
			Entity:   strings.ToUpper(r.Entity),
			Kind:     RelationKind(r.Kind),
			Relating: r.Relating,
			Related:  r.Related,
		}
		replaced := false
		for i := range spec.Relationships {
			if spec.Relationships[i].Entity == rel.Entity {
				spec.Relationships[i] = rel
				replaced = true
			}
		}
		if !replaced {
			spec.Relationships = append(spec.Relationships, rel)
		}
	}
	return spec, nil
}

// ForSchema returns the first profile declaring schemaID, or the default profile.
func (c *Catalog) ForSchema(schemaID string) *Profile {
	for _, p := range c.profiles {
		if p.Supports(schemaID) {
			return p
		}
	}
	return c.fallback
}

// Profile returns a profile by name.
func (c *Catalog) Profile(name string) (*Profile, bool) {
	p, ok := c.byName[name]
	return p, ok
}

func evalContext(builtin *Profile) *hcl.EvalContext {
	var spec ProfileSpec
	if builtin != nil {
		spec = ProfileSpec{
			Schemas:         builtin.Schemas,
			ContainerTypes:  builtin.ContainerTypes,
			HierarchyLevels: builtin.HierarchyLevels,
			RootTypes:       builtin.RootTypes(),
			Relationships:   builtin.Relationships,
		}
	}
	relTypes := make([]string, len(spec.Relationships))
	for i, rel := range spec.Relationships {
		relTypes[i] = rel.Entity
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"builtin": cty.ObjectVal(map[string]cty.Value{
				"schemas":            stringList(spec.Schemas),
				"container_types":    stringList(spec.ContainerTypes),
				"hierarchy_levels":   stringList(spec.HierarchyLevels),
				"root_types":         stringList(spec.RootTypes),
				"relationship_types": stringList(relTypes),
			}),
		},
		Functions: map[string]function.Function{
			"upper":    stdlib.UpperFunc,
			"lower":    stdlib.LowerFunc,
			"concat":   stdlib.ConcatFunc,
			"distinct": stdlib.DistinctFunc,
		},
	}
}

func stringList(values []string) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	out := make([]cty.Value, len(values))
	for i, v := range values {
		out[i] = cty.StringVal(v)
	}
	return cty.ListVal(out)
}

// findProfileFiles expands directories into the .hcl files they contain.
func findProfileFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("error accessing profile path %s: %w", p, err)
		}
		found := []string{p}
		if info.IsDir() {
			found, err = fsutil.FindFilesByExtension(p, ".hcl")
			if err != nil {
				return nil, err
			}
		}
		for _, f := range found {
			if _, dup := seen[f]; !dup {
				seen[f] = struct{}{}
				files = append(files, f)
			}
		}
	}
	return files, nil
}

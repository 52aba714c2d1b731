package resolve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/panbanda/refgraph/pkg/config"
	"github.com/panbanda/refgraph/pkg/models"
	"github.com/panbanda/refgraph/pkg/scanner"
)

func testTree(paths ...string) *scanner.Tree {
	nodes := make([]models.FileNode, 0, len(paths))
	for _, p := range paths {
		nodes = append(nodes, models.FileNode{Path: p, Size: 1, Source: true})
	}
	return scanner.NewTree("/repo", nodes)
}

func testResolver(paths ...string) *Resolver {
	return New(testTree(paths...), OptionsFromConfig(config.DefaultConfig()))
}

func TestResolve_Module(t *testing.T) {
	r := testResolver(
		"src/main.js",
		"src/util.js",
		"src/types.ts",
		"src/widgets/index.ts",
		"src/api/client.service.ts",
		"src/style.css",
		"shared/log.js",
		"lib/index.js",
		"index.js",
	)

	tests := []struct {
		name   string
		source string
		raw    string
		want   Outcome
		target string
	}{
		{"as given", "src/main.js", "./util.js", Resolved, "src/util.js"},
		{"extension inferred", "src/main.js", "./util", Resolved, "src/util.js"},
		{"second extension", "src/main.js", "./types", Resolved, "src/types.ts"},
		{"dotted name", "src/main.js", "./api/client.service", Resolved, "src/api/client.service.ts"},
		{"index file", "src/main.js", "./widgets", Resolved, "src/widgets/index.ts"},
		{"trailing slash", "src/main.js", "./widgets/", Resolved, "src/widgets/index.ts"},
		{"parent", "src/main.js", "../shared/log", Resolved, "shared/log.js"},
		{"rooted", "src/main.js", "/lib", Resolved, "lib/index.js"},
		{"dot", "index.js", ".", Resolved, "index.js"},
		{"known extension not inferred", "src/main.js", "./style.css", Resolved, "src/style.css"},
		{"missing", "src/main.js", "./missing", Broken, ""},
		{"escapes root", "src/main.js", "../../outside", Broken, ""},
		{"case sensitive", "src/main.js", "./Util", Broken, ""},
		{"package", "src/main.js", "react", External, ""},
		{"package subpath", "src/main.js", "lodash/fp", External, ""},
		{"scoped package", "src/main.js", "@scope/pkg", External, ""},
		{"node scheme", "src/main.js", "node:fs", External, ""},
		{"project subpath", "src/main.js", "widgets/index", Resolved, "src/widgets/index.ts"},
		{"project subpath from root", "src/main.js", "shared/log", Resolved, "shared/log.js"},
		{"project subpath missing", "src/main.js", "shared/gone", Broken, ""},
		{"query stripped", "src/main.js", "./util?raw", Resolved, "src/util.js"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := models.RawReference{Source: tt.source, Line: 1, Type: models.RefImport, Raw: tt.raw}
			got := r.Resolve(ref)
			assert.Equal(t, tt.want, got.Outcome, got.Outcome.String())
			assert.Equal(t, tt.target, got.Target)
			if tt.want != External {
				assert.Equal(t, models.ResolutionModule, got.Resolution)
			}
		})
	}
}

func TestResolve_Include(t *testing.T) {
	r := testResolver("src/main.c", "src/util.h", "include/types.h", "util.h")

	res := r.Resolve(models.RawReference{Source: "src/main.c", Type: models.RefInclude, Raw: "util.h", Target: "./util.h"})
	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, "src/util.h", res.Target)

	// no root fallback and no extension inference
	res = r.Resolve(models.RawReference{Source: "src/main.c", Type: models.RefInclude, Raw: "types.h", Target: "./types.h"})
	assert.Equal(t, Broken, res.Outcome)
	assert.Equal(t, models.ResolutionRelative, res.Resolution)

	res = r.Resolve(models.RawReference{Source: "src/main.c", Type: models.RefInclude, Raw: "util", Target: "./util"})
	assert.Equal(t, Broken, res.Outcome)
}

func TestResolve_Path(t *testing.T) {
	r := testResolver("public/index.html", "public/css/site.css", "img/logo.png", "assets/a.png")

	tests := []struct {
		raw    string
		want   Outcome
		target string
	}{
		{"./css/site.css", Resolved, "public/css/site.css"},
		{"./img/logo.png", Resolved, "img/logo.png"},
		{"/assets/a.png", Resolved, "assets/a.png"},
		{"./css/site.css#section", Resolved, "public/css/site.css"},
		{"./css/missing.css", Broken, ""},
		{"./css", External, ""},
		{"#top", External, ""},
		{"https://example.com/x.png", External, ""},
		{"//cdn.example.com/x.js", External, ""},
		{"{{ asset }}", External, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := r.Resolve(models.RawReference{Source: "public/index.html", Type: models.RefPath, Raw: tt.raw})
			assert.Equal(t, tt.want, got.Outcome, got.Outcome.String())
			assert.Equal(t, tt.target, got.Target)
		})
	}
}

func TestResolve_Qualified(t *testing.T) {
	r := testResolver(
		"src/main/java/com/acme/App.java",
		"src/main/java/com/acme/model/Cart.java",
		"app/__init__.py",
		"app/models.py",
		"lib/helpers/format.rb",
	)

	tests := []struct {
		name   string
		target string
		want   Outcome
		file   string
	}{
		{"java class", "com/acme/model/Cart", Resolved, "src/main/java/com/acme/model/Cart.java"},
		{"inner class", "com/acme/model/Cart/Line", Resolved, "src/main/java/com/acme/model/Cart.java"},
		{"owned but missing", "com/acme/model/Gone", Broken, ""},
		{"library", "java/util/List", External, ""},
		{"python module", "app/models", Resolved, "app/models.py"},
		{"python package", "app", Resolved, "app/__init__.py"},
		{"stdlib", "os", External, ""},
		{"ruby load path", "helpers/format", Resolved, "lib/helpers/format.rb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(models.RawReference{Source: "x", Type: models.RefImport, Raw: tt.target, Target: tt.target, Qualified: true})
			assert.Equal(t, tt.want, got.Outcome, got.Outcome.String())
			assert.Equal(t, tt.file, got.Target)
		})
	}
}

func TestIsExternal(t *testing.T) {
	external := []string{"", "react", "http://x", "mailto:a@b", "data:x", "//host/x", "$HOME/x", "~/x", "${a}/b", "{{x}}/y", "<%= x %>"}
	for _, tok := range external {
		assert.True(t, IsExternal(tok, false), tok)
	}
	local := []string{"./a", "../a", "/a", "a/b", ".", ".."}
	for _, tok := range local {
		assert.False(t, IsExternal(tok, false), tok)
	}
	assert.False(t, IsExternal("os", true))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "./a.css", Clean(" ./a.css?v=2 "))
	assert.Equal(t, "./a.html", Clean("./a.html#x"))
	assert.Equal(t, "../x/y.h", Clean(`..\x\y.h`))
	assert.Equal(t, "", Clean("#frag"))
}

func TestEdgeAndBrokenReference(t *testing.T) {
	ref := models.RawReference{Source: "a.js", Line: 4, Type: models.RefRequire, Raw: "./b"}
	edge := Edge(ref, Result{Outcome: Resolved, Target: "b.js"})
	assert.Equal(t, models.ResolvedEdge{Source: "a.js", Target: "b.js", Type: models.RefRequire}, edge)

	broken := BrokenReference(ref, Result{Outcome: Broken, Resolution: models.ResolutionModule})
	assert.Equal(t, models.BrokenReference{
		SourceFile:     "a.js",
		ReferencedPath: "./b",
		LineNumber:     4,
		ReferenceType:  models.RefRequire,
		Resolution:     models.ResolutionModule,
	}, broken)
}

func TestResolve_TypeScriptEmittedExtensions(t *testing.T) {
	r := testResolver(
		"src/main.ts",
		"src/a.ts",
		"src/view.tsx",
		"src/esm.mts",
		"src/cjs.cts",
		"src/plain.js",
		"src/both.js",
		"src/both.ts",
		"web/app.js",
	)

	tests := []struct {
		name   string
		source string
		raw    string
		want   Outcome
		target string
	}{
		{"js names ts", "src/main.ts", "./a.js", Resolved, "src/a.ts"},
		{"js names tsx", "src/main.ts", "./view.js", Resolved, "src/view.tsx"},
		{"jsx names tsx", "src/main.ts", "./view.jsx", Resolved, "src/view.tsx"},
		{"mjs names mts", "src/main.ts", "./esm.mjs", Resolved, "src/esm.mts"},
		{"cjs names cts", "src/main.ts", "./cjs.cjs", Resolved, "src/cjs.cts"},
		{"real js file still wins", "src/main.ts", "./both.js", Resolved, "src/both.js"},
		{"plain js", "src/main.ts", "./plain.js", Resolved, "src/plain.js"},
		{"from tsx source", "src/view.tsx", "./a.js", Resolved, "src/a.ts"},
		{"missing", "src/main.ts", "./gone.js", Broken, ""},
		{"javascript source does not substitute", "web/app.js", "../src/a.js", Broken, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(models.RawReference{Source: tt.source, Line: 1, Type: models.RefImport, Raw: tt.raw})
			assert.Equal(t, tt.want, got.Outcome, got.Outcome.String())
			assert.Equal(t, tt.target, got.Target)
		})
	}
}

func TestResolve_Fallbacks(t *testing.T) {
	r := testResolver(
		"main.py",
		"pkg/__init__.py",
		"pkg/mod.py",
		"app/main.py",
		"app/__init__.py",
		"ns/sub.py",
		"styles/main.scss",
		"styles/_variables.scss",
		"styles/theme/_index.scss",
	)

	py := func(source, target string, fallbacks ...string) models.RawReference {
		return models.RawReference{
			Source: source, Type: models.RefImport, Raw: target, Target: target,
			Qualified: !strings.HasPrefix(target, "."), Fallbacks: fallbacks, Optional: true,
		}
	}

	tests := []struct {
		name   string
		ref    models.RawReference
		want   Outcome
		target string
	}{
		{"submodule first", py("main.py", "pkg/mod", "pkg"), Resolved, "pkg/mod.py"},
		{"name defined in package", py("main.py", "pkg/helper", "pkg"), Resolved, "pkg/__init__.py"},
		{"relative name defined in package", py("app/main.py", "./helper", "./"), Resolved, "app/__init__.py"},
		{"namespace package submodule", py("main.py", "ns/sub", "ns"), Resolved, "ns/sub.py"},
		{"optional miss is dropped", py("main.py", "pkg/x", "pkg/gone"), External, ""},
		{"sass partial", models.RawReference{
			Source: "styles/main.scss", Type: models.RefImport, Raw: "variables", Target: "./variables",
			Fallbacks: []string{"./_variables", "./variables/_index", "./variables/index"},
		}, Resolved, "styles/_variables.scss"},
		{"sass index", models.RawReference{
			Source: "styles/main.scss", Type: models.RefImport, Raw: "theme", Target: "./theme",
			Fallbacks: []string{"./_theme", "./theme/_index", "./theme/index"},
		}, Resolved, "styles/theme/_index.scss"},
		{"sass missing is broken", models.RawReference{
			Source: "styles/main.scss", Type: models.RefImport, Raw: "gone", Target: "./gone",
			Fallbacks: []string{"./_gone", "./gone/_index", "./gone/index"},
		}, Broken, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.ref)
			assert.Equal(t, tt.want, got.Outcome, got.Outcome.String())
			assert.Equal(t, tt.target, got.Target)
		})
	}
}

func TestResolve_NamespacePackage(t *testing.T) {
	r := testResolver("main.py", "ns/sub.py", "app/main.py", "owned/__init__.py")

	pkg := func(source, target string, qualified bool) models.RawReference {
		return models.RawReference{Source: source, Type: models.RefImport, Raw: target, Target: target, Qualified: qualified, Namespace: true}
	}

	assert.Equal(t, External, r.Resolve(pkg("main.py", "ns", true)).Outcome, "directory without __init__.py")
	assert.Equal(t, External, r.Resolve(pkg("app/main.py", "./", false)).Outcome, "own directory")
	assert.Equal(t, External, r.Resolve(pkg("main.py", "./", false)).Outcome, "tree root")
	assert.Equal(t, Broken, r.Resolve(pkg("main.py", "owned/gone", true)).Outcome)
	assert.Equal(t, Broken, r.Resolve(pkg("app/main.py", "./missing", false)).Outcome)

	res := r.Resolve(pkg("main.py", "owned", true))
	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, "owned/__init__.py", res.Target)
}

func TestResolve_PathDirectoryThenRootFile(t *testing.T) {
	r := testResolver("site/index.html", "site/data/a.json", "site/assets/x.png", "data")

	res := r.Resolve(models.RawReference{Source: "site/index.html", Type: models.RefPath, Raw: "data", Target: "./data"})
	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, "data", res.Target)

	// only a directory matches
	res = r.Resolve(models.RawReference{Source: "site/index.html", Type: models.RefPath, Raw: "assets", Target: "./assets"})
	assert.Equal(t, External, res.Outcome)
}

package testscope

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/testscope/internal/codemodel"
	"github.com/jward/testscope/internal/settings"
	"github.com/jward/testscope/internal/store"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeJava(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

const ownerSrc = `package demo;

public class Owner {
    public Owner(Pet pet) {
        this.pet = pet;
    }

    private Pet pet;
}
`

const petSrc = `package demo;

public class Pet {
    public void feed(Food food) {
        food.eat();
    }
}
`

const foodSrc = `package demo;

public class Food {
    void eat() {}
}
`

func TestNew_CreatesStoreAndRuntime(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath)
	require.NoError(t, err)
	defer e.Close()

	require.NotNil(t, e.store)
	require.NotNil(t, e.runtime)
	require.NotNil(t, e.Store())

	// Verify the DB is usable (migration ran).
	_, err = e.Store().InsertFile(&store.File{
		Path: "/tmp/Test.java", Language: "java", Hash: "abc", LastIndexed: time.Now(),
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestIndexFiles_SkipsUnsupportedExtensions(t *testing.T) {
	e := newTestEngine(t)

	tmp := filepath.Join(t.TempDir(), "readme.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("hello"), 0o644))

	require.NoError(t, e.IndexFiles(context.Background(), []string{tmp}))

	f, err := e.Store().FileByPath(tmp)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIndexFiles_StoresFacts(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		t.Run(map[bool]string{true: "parallel", false: "serial"}[parallel], func(t *testing.T) {
			e := newTestEngine(t, WithParallel(parallel))
			dir := t.TempDir()
			paths := []string{
				writeJava(t, dir, "Owner.java", ownerSrc),
				writeJava(t, dir, "Pet.java", petSrc),
				writeJava(t, dir, "Food.java", foodSrc),
			}
			require.NoError(t, e.IndexFiles(context.Background(), paths))

			f, err := e.Store().FileByPath(paths[0])
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, "demo", f.Package)
			assert.Equal(t, "java", f.Language)

			classes, err := e.Store().ClassesByFile(f.ID)
			require.NoError(t, err)
			require.Len(t, classes, 1)
			assert.Equal(t, "demo.Owner", classes[0].QualifiedName)
		})
	}
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	e := newTestEngine(t)
	path := writeJava(t, t.TempDir(), "Pet.java", petSrc)
	ctx := context.Background()

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	before, err := e.Store().FileByPath(path)
	require.NoError(t, err)

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	after, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "unchanged file must not be rewritten")
}

func TestIndexFiles_ReindexesChangedFiles(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	path := writeJava(t, dir, "Pet.java", petSrc)
	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	writeJava(t, dir, "Pet.java", `package demo;

public class Pet {
    public void feed(Food food) {}
    public void walk(Leash leash) {}
}
`)
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	classes, err := e.Store().ClassesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	methods, err := e.Store().AllMethods()
	require.NoError(t, err)
	assert.Len(t, methods, 2)

	all, err := e.Store().AllClasses()
	require.NoError(t, err)
	assert.Len(t, all, 1, "old facts must be replaced, not duplicated")
}

func TestIndexFiles_ReportsUnreadableFile(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	good := writeJava(t, dir, "Pet.java", petSrc)
	missing := filepath.Join(dir, "Missing.java")

	err := e.IndexFiles(context.Background(), []string{missing, good})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing.java")

	f, err := e.Store().FileByPath(good)
	require.NoError(t, err)
	assert.NotNil(t, f, "other files are still indexed")
}

func TestResolve_TracksSignatureChanges(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	ctx := context.Background()
	path := writeJava(t, dir, "Pet.java", petSrc)
	writeJava(t, dir, "Food.java", foodSrc)

	assert.True(t, e.NeedsResolve(), "never resolved")
	require.NoError(t, e.IndexDirectory(ctx, dir))
	require.NoError(t, e.Resolve(ctx))
	assert.False(t, e.NeedsResolve())

	// Body-only edit: signatures unchanged.
	writeJava(t, dir, "Pet.java", `package demo;

public class Pet {
    public void feed(Food food) {
        food.eat();
        food.eat();
    }
}
`)
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	assert.False(t, e.NeedsResolve())

	// Parameter type changed.
	writeJava(t, dir, "Pet.java", `package demo;

public class Pet {
    public void feed(String food) {}
}
`)
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	assert.True(t, e.NeedsResolve())
	require.NoError(t, e.Resolve(ctx))
	assert.False(t, e.NeedsResolve())
}

func TestResolve_ResolvesParameterTypes(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	ctx := context.Background()
	writeJava(t, dir, "Owner.java", ownerSrc)
	writeJava(t, dir, "Pet.java", petSrc)
	writeJava(t, dir, "Food.java", foodSrc)

	require.NoError(t, e.IndexDirectory(ctx, dir))
	require.NoError(t, e.Resolve(ctx))

	m, err := e.Model()
	require.NoError(t, err)
	pet, ok := m.ClassByName("demo.Pet")
	require.True(t, ok)
	require.Len(t, pet.Methods, 1)
	feed := m.Method(pet.Methods[0])
	require.Len(t, feed.Params, 1)
	assert.Equal(t, "demo.Food", feed.Params[0].Resolved)
	assert.Equal(t, "demo.Food", m.Class(feed.Params[0].Class).QualifiedName)
}

func TestIndexDirectory_PrunesDeletedFiles(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	ctx := context.Background()
	food := writeJava(t, dir, "Food.java", foodSrc)
	writeJava(t, dir, "Pet.java", petSrc)

	require.NoError(t, e.IndexDirectory(ctx, dir))
	require.NoError(t, e.Resolve(ctx))
	require.NoError(t, os.Remove(food))

	require.NoError(t, e.IndexDirectory(ctx, dir))
	f, err := e.Store().FileByPath(food)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.True(t, e.NeedsResolve())
}

func TestIndexDirectory_SkipsHiddenAndBuildDirs(t *testing.T) {
	root := t.TempDir()
	writeJava(t, root, ".idea/Hidden.java", foodSrc)
	writeJava(t, root, "target/Generated.java", foodSrc)

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve_NoFiles(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Resolve(context.Background()))
}

// ---------------------------------------------------------------------------
// Analyzer
// ---------------------------------------------------------------------------

const nestedSrc = `package demo;

public class Outer {
    public void run(Pet pet) {
        pet.feed(null);
    }

    static class Inner {
        void step(Food food) {
            food.eat();
        }
    }
}
`

func indexedAnalyzer(t *testing.T, s *settings.Settings, opts ...Option) (*Analyzer, string, []byte) {
	t.Helper()
	e := newTestEngine(t, opts...)
	dir := t.TempDir()
	ctx := context.Background()
	path := writeJava(t, dir, "Outer.java", nestedSrc)
	writeJava(t, dir, "Pet.java", petSrc)
	writeJava(t, dir, "Food.java", foodSrc)
	require.NoError(t, e.IndexDirectory(ctx, dir))
	require.NoError(t, e.Resolve(ctx))

	a, err := e.Analyzer(ctx, s)
	require.NoError(t, err)
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	return a, path, src
}

func offsetOf(t *testing.T, src []byte, needle string) int {
	t.Helper()
	i := bytes.Index(src, []byte(needle))
	require.GreaterOrEqual(t, i, 0, "%q not in source", needle)
	return i
}

func TestAnalyzer_DefaultTestable(t *testing.T) {
	a, path, src := indexedAnalyzer(t, settings.Defaults())

	c, err := a.SurroundingClass(path, offsetOf(t, src, "food.eat()"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "demo.Outer.Inner", c.QualifiedName)
}

func TestAnalyzer_TestableScriptOption(t *testing.T) {
	a, path, src := indexedAnalyzer(t, settings.Defaults(), WithTestableScript(`!is_nested`))
	offset := offsetOf(t, src, "food.eat()")

	c, err := a.SurroundingClass(path, offset)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "demo.Outer", c.QualifiedName)

	// step belongs to a class the script rejects.
	m, err := a.SurroundingMethod(path, offset)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestAnalyzer_TestableScriptSetting(t *testing.T) {
	s := settings.Defaults()
	s.TestableScript = `name != "Outer"`
	a, path, src := indexedAnalyzer(t, s)

	c, err := a.SurroundingClass(path, offsetOf(t, src, "pet.feed"))
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = a.ClassesToTest(path, offsetOf(t, src, "pet.feed"))
	require.ErrorIs(t, err, ErrNoClass)
}

func TestAnalyzer_FailingScriptPropagates(t *testing.T) {
	a, path, src := indexedAnalyzer(t, settings.Defaults(), WithTestableScript(`name`))

	_, err := a.SurroundingClass(path, offsetOf(t, src, "pet.feed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want bool")
}

func TestAnalyzer_SurroundingLineOutOfRange(t *testing.T) {
	a, path, src := indexedAnalyzer(t, settings.Defaults())

	_, _, err := a.SurroundingLine(path, len(src)+10)
	require.ErrorIs(t, err, codemodel.ErrOffsetOutOfRange)

	_, err = a.CodeTypesAt(path, len(src)+10)
	require.ErrorIs(t, err, codemodel.ErrOffsetOutOfRange)
}

func TestAnalyzer_InterestingRespectsDepthSetting(t *testing.T) {
	s := settings.Defaults()
	s.MaxInputParamsDepth = 1
	a, path, src := indexedAnalyzer(t, s)

	classes, err := a.ClassesToTest(path, offsetOf(t, src, "pet.feed"))
	require.NoError(t, err)
	require.Len(t, classes, 1)

	assert.Equal(t, []string{"demo.Pet"}, a.InterestingClasses(classes, 0).Names())
	assert.Empty(t, a.InterestingClasses(classes, 1).Names())

	s.MaxInputParamsDepth = 2
	assert.Equal(t, []string{"demo.Food", "demo.Pet"}, a.InterestingClasses(classes, 0).Names())
}

func TestAnalyzer_PublicSettings(t *testing.T) {
	s := DefaultSettings()
	s.MaxInputParamsDepth = 1
	a, path, src := indexedAnalyzer(t, s)
	classes, err := a.ClassesToTest(path, offsetOf(t, src, "pet.feed"))
	require.NoError(t, err)
	assert.Equal(t, []string{"demo.Pet"}, a.InterestingClasses(classes, 0).Names())

	// nil means the defaults, which reach two levels deep.
	a, path, src = indexedAnalyzer(t, nil)
	classes, err = a.ClassesToTest(path, offsetOf(t, src, "pet.feed"))
	require.NoError(t, err)
	assert.Equal(t, []string{"demo.Food", "demo.Pet"}, a.InterestingClasses(classes, 0).Names())
}

func TestLoadSettings_MissingFile(t *testing.T) {
	t.Setenv(settings.TokenEnv, "")
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestAnalyzer_OutsideAnyClass(t *testing.T) {
	a, path, _ := indexedAnalyzer(t, settings.Defaults())

	types, err := a.CodeTypesAt(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{LineDisplayName(1)}, types)
}

func TestDisplayNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "<html><b><font color='orange'>line</font> 12</b></html>", LineDisplayName(12))
	assert.Equal(t, "<html><b><font color='orange'>abstract class</font> a.B</b></html>",
		ClassDisplayName(&codemodel.Class{QualifiedName: "a.B", Kind: codemodel.KindClass, Modifiers: []string{"public", "abstract"}}))
	assert.Equal(t, "<html><b><font color='orange'>record</font> a.R</b></html>",
		ClassDisplayName(&codemodel.Class{QualifiedName: "a.R", Kind: codemodel.KindRecord}))
	assert.Equal(t, "<html><b><font color='orange'>default method</font> run</b></html>",
		MethodDisplayName(&codemodel.Method{Name: "run", Modifiers: []string{"default"}, HasBody: true}))
	assert.Equal(t, "<html><b><font color='orange'>constructor</font></b></html>",
		MethodDisplayName(&codemodel.Method{Name: "A", IsConstructor: true, HasBody: true}))
}

const hostSrc = `package demo;

public class Host {
    void outer() {
        class Helper {
            int inner(int x) {
                return x + 1;
            }
        }
        new Runnable() {
            public void run() {
                System.out.println("anon");
            }
        };
    }
}
`

func TestAnalyzer_LocalAndAnonymousClasses(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	ctx := context.Background()
	path := writeJava(t, dir, "Host.java", hostSrc)
	require.NoError(t, e.IndexDirectory(ctx, dir))
	require.NoError(t, e.Resolve(ctx))
	a, err := e.Analyzer(ctx, settings.Defaults())
	require.NoError(t, err)
	src := []byte(hostSrc)

	offset := offsetOf(t, src, "return x + 1")
	c, err := a.SurroundingClass(path, offset)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "demo.Host$1Helper", c.QualifiedName)
	assert.Equal(t, "Helper", c.Name)

	m, err := a.SurroundingMethod(path, offset)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "inner", m.Name)
	assert.Equal(t, "inner(I)I", a.MethodDescriptor(m))

	offset = offsetOf(t, src, "System.out")
	c, err = a.SurroundingClass(path, offset)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "demo.Host$1", c.QualifiedName)
	require.NotEqual(t, codemodel.NoClass, c.Superclass)
	assert.Equal(t, "java.lang.Runnable", a.Model().Class(c.Superclass).QualifiedName)

	m, err = a.SurroundingMethod(path, offset)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "run", m.Name)

	classes, err := a.ClassesToTest(path, offset)
	require.NoError(t, err)
	require.NotEmpty(t, classes)
	assert.Equal(t, "demo.Host$1", classes[0].QualifiedName)

	// Between the local classes, the enclosing method still wins.
	m, err = a.SurroundingMethod(path, offsetOf(t, src, "new Runnable"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "outer", m.Name)
}

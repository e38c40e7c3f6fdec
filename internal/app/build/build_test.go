package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/dishindex/internal/config"
	"github.com/John-Robertt/dishindex/internal/domain"
)

type recordObserver struct {
	startCalls int
	scanned    []string
	skipped    []string
	done       *domain.BuildReport
}

func (o *recordObserver) OnStart(config.EffectiveConfig) { o.startCalls++ }

func (o *recordObserver) OnFolderScanned(category string, records int) {
	o.scanned = append(o.scanned, category)
}

func (o *recordObserver) OnFolderSkipped(category, path string) {
	o.skipped = append(o.skipped, category)
}

func (o *recordObserver) OnDone(rr domain.BuildReport, dur time.Duration) { o.done = &rr }

func testConfig(root string, folders ...string) config.EffectiveConfig {
	return config.EffectiveConfig{
		Root:         root,
		DishFolders:  folders,
		ExcludeFiles: []string{"README.md"},
		SoupFolders:  []string{"汤"},
		OutputDir:    "public",
		OutputFile:   "dishes.json",
	}
}

func TestExecute_ExampleScenario(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "炒菜", "菠萝咕咾肉.md"))
	touch(t, filepath.Join(root, "炒菜", "README.md"))
	touch(t, filepath.Join(root, "汤", "冬瓜汤.md"))

	eff := testConfig(root, "炒菜", "汤")
	obs := &recordObserver{}

	rr, records, err := Execute(context.Background(), eff, obs)
	require.NoError(t, err)
	require.Len(t, records, 2)

	b, err := os.ReadFile(filepath.Join(root, ".vitepress", "public", "dishes.json"))
	require.NoError(t, err)

	want := `[{"category":"炒菜","name":"菠萝咕咾肉","link":"/炒菜/菠萝咕咾肉","type":"菜类"},{"category":"汤","name":"冬瓜汤","link":"/汤/冬瓜汤","type":"汤类"}]`
	assert.JSONEq(t, want, string(b))

	assert.Equal(t, 1, obs.startCalls)
	assert.Equal(t, []string{"炒菜", "汤"}, obs.scanned)
	assert.Empty(t, obs.skipped)
	require.NotNil(t, obs.done)
	assert.Equal(t, domain.BuildSummary{Records: 2, Scanned: 2}, rr.Summary)
	assert.Equal(t, eff.OutputPath(), rr.Output)
}

func TestExecute_PrettyPrintedTwoSpaces(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "汤", "冬瓜汤.md"))

	_, _, err := Execute(context.Background(), testConfig(root, "汤"), nil)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(root, ".vitepress", "public", "dishes.json"))
	require.NoError(t, err)

	want := "[\n" +
		"  {\n" +
		"    \"category\": \"汤\",\n" +
		"    \"name\": \"冬瓜汤\",\n" +
		"    \"link\": \"/汤/冬瓜汤\",\n" +
		"    \"type\": \"汤类\"\n" +
		"  }\n" +
		"]"
	assert.Equal(t, want, string(b))
}

func TestExecute_MissingFolderSkipped(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "炒菜", "宫保鸡丁.md"))

	obs := &recordObserver{}
	rr, records, err := Execute(context.Background(), testConfig(root, "烤类", "炒菜"), obs)
	require.NoError(t, err)

	assert.Len(t, records, 1)
	assert.Equal(t, []string{"烤类"}, obs.skipped)
	assert.Equal(t, domain.BuildSummary{Records: 1, Scanned: 1, Skipped: 1}, rr.Summary)
	assert.Equal(t, domain.FolderStatusSkipped, rr.Folders[0].Status)
}

func TestExecute_AllFoldersMissingWritesEmptyArray(t *testing.T) {
	root := t.TempDir()

	_, records, err := Execute(context.Background(), testConfig(root, "主食"), nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	b, err := os.ReadFile(filepath.Join(root, ".vitepress", "public", "dishes.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestExecute_CountMatchesQualifyingFiles(t *testing.T) {
	root := t.TempDir()
	files := map[string][]string{
		"主食": {"米饭.md", "面条.md", "README.md", "封面.jpg"},
		"凉拌": {"拍黄瓜.md"},
		"汤":  {"番茄蛋汤.md", "紫菜汤.md", "notes.txt"},
	}
	for dir, names := range files {
		for _, n := range names {
			touch(t, filepath.Join(root, dir, n))
		}
	}

	_, _, err := Execute(context.Background(), testConfig(root, "主食", "凉拌", "卤菜", "汤"), nil)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(root, ".vitepress", "public", "dishes.json"))
	require.NoError(t, err)

	var got []domain.DishRecord
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got, 5)

	for _, r := range got {
		assert.Equal(t, "/"+r.Category+"/"+r.Name, r.Link)
		if r.Category == "汤" {
			assert.Equal(t, domain.TypeSoup, r.Type)
		} else {
			assert.Equal(t, domain.TypeDish, r.Type)
		}
	}
	// 目录顺序优先，其次目录内顺序。
	assert.Equal(t, []string{"米饭", "面条", "拍黄瓜", "番茄蛋汤", "紫菜汤"}, names(got))
}

func TestExecute_OverwritesExistingOutput(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "汤", "冬瓜汤.md"))
	out := filepath.Join(root, ".vitepress", "public", "dishes.json")
	touch(t, out)

	_, _, err := Execute(context.Background(), testConfig(root, "汤"), nil)
	require.NoError(t, err)

	var got []domain.DishRecord
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Len(t, got, 1)
}

func TestExecute_ReadErrorIsFatalAndWritesNothing(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "炒菜", "宫保鸡丁.md"))
	// 分类路径是普通文件：存在但无法读取目录，属于致命错误。
	touch(t, filepath.Join(root, "汤"))

	obs := &recordObserver{}
	_, _, err := Execute(context.Background(), testConfig(root, "炒菜", "汤"), obs)
	require.Error(t, err)
	assert.Nil(t, obs.done)

	_, statErr := os.Stat(filepath.Join(root, ".vitepress"))
	assert.True(t, os.IsNotExist(statErr), "失败时不应创建输出")
}

func TestExecute_OutputDirConflictIsFatal(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "汤", "冬瓜汤.md"))
	touch(t, filepath.Join(root, ".vitepress", "public"))

	_, _, err := Execute(context.Background(), testConfig(root, "汤"), nil)
	require.Error(t, err)
}

func TestExecute_CanceledContext(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Execute(ctx, testConfig(root, "汤"), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMarshal_NoHTMLEscape(t *testing.T) {
	b, err := Marshal([]domain.DishRecord{domain.NewDishRecord("饮品", "A&B<特调>.md", false)})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"name": "A&B<特调>"`)
}

func TestMarshal_LineSeparatorEscapedButEquivalent(t *testing.T) {
	b, err := Marshal([]domain.DishRecord{domain.NewDishRecord("饮品", "柠檬\u2028茶.md", false)})
	require.NoError(t, err)
	assert.Contains(t, string(b), `柠檬\u2028茶`)

	var got []domain.DishRecord
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "柠檬\u2028茶", got[0].Name)
}

func TestExecute_BareExtensionFileIgnored(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "炒菜", ".md"))
	touch(t, filepath.Join(root, "炒菜", "宫保鸡丁.md"))

	_, records, err := Execute(context.Background(), testConfig(root, "炒菜"), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/炒菜/宫保鸡丁", records[0].Link)
}

func names(rs []domain.DishRecord) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

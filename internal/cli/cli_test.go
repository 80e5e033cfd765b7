package cli

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audiochan.click/internal/config"
	"audiochan.click/internal/fs"
)

// newTestCLI returns a CLI on an in-memory filesystem, the null sink and a
// journal in a temp dir. The default logger is restored afterwards.
func newTestCLI(t *testing.T) (*CLI, afero.Fs) {
	t.Helper()

	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	t.Setenv("AUDIOCHAN_AUDIO_SINK", "null")
	t.Setenv("AUDIOCHAN_JOURNAL_PATH", filepath.Join(t.TempDir(), "journal.db"))

	factory := fs.NewMemoryFactory()
	cli := NewCLI()
	cli.fsFactory = factory
	cli.configManager = config.NewConfigManagerWithFilesystem(factory.Memory())
	cli.terminalDetector = &stubTerminalDetector{}
	return cli, factory.Memory()
}

// stageClip writes a mono 16-bit 8 kHz WAV of durationMS milliseconds
func stageClip(t *testing.T, memFS afero.Fs, path string, durationMS int) {
	t.Helper()

	const sampleRate = 8000
	frames := sampleRate * durationMS / 1000
	dataSize := frames * 2

	wav := make([]byte, 0, 44+dataSize)
	wav = append(wav, "RIFF"...)
	wav = binary.LittleEndian.AppendUint32(wav, uint32(36+dataSize))
	wav = append(wav, "WAVE"...)
	wav = append(wav, "fmt "...)
	wav = binary.LittleEndian.AppendUint32(wav, 16)
	wav = binary.LittleEndian.AppendUint16(wav, 1)
	wav = binary.LittleEndian.AppendUint16(wav, 1)
	wav = binary.LittleEndian.AppendUint32(wav, sampleRate)
	wav = binary.LittleEndian.AppendUint32(wav, sampleRate*2)
	wav = binary.LittleEndian.AppendUint16(wav, 2)
	wav = binary.LittleEndian.AppendUint16(wav, 16)
	wav = append(wav, "data"...)
	wav = binary.LittleEndian.AppendUint32(wav, uint32(dataSize))
	for i := range frames {
		wav = binary.LittleEndian.AppendUint16(wav, uint16(int16(i%500)))
	}

	require.NoError(t, afero.WriteFile(memFS, path, wav, 0644))
}

// sharing returns a fresh CLI over the same filesystem and config as from
func sharing(from *CLI) *CLI {
	cli := NewCLI()
	cli.fsFactory = from.fsFactory
	cli.configManager = from.configManager
	cli.terminalDetector = from.terminalDetector
	return cli
}

func run(cli *CLI, stdin string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := cli.Run(append([]string{"audiochan"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRootCommand(t *testing.T) {
	cli := NewCLI()
	require.NotNil(t, cli.rootCmd)
	assert.Equal(t, "audiochan", cli.rootCmd.Use)
	assert.NotEmpty(t, cli.rootCmd.Short)

	var names []string
	for _, cmd := range cli.rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, expected := range []string{"play", "console", "history", "sinks", "version"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersion(t *testing.T) {
	for _, args := range [][]string{{"--version"}, {"-v"}, {"version"}} {
		cli, _ := newTestCLI(t)
		code, stdout, _ := run(cli, "", args...)
		assert.Equal(t, 0, code, args)
		assert.Equal(t, "audiochan version "+Version+"\n", stdout)
	}
}

func TestCLIFlags(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		exitCode int
	}{
		{"help flag", []string{"--help"}, 0},
		{"no command shows help", nil, 0},
		{"invalid flag", []string{"--invalid-flag"}, 1},
		{"volume in range", []string{"sinks", "--volume", "80"}, 0},
		{"volume out of range", []string{"sinks", "--volume", "101"}, 1},
		{"volume not a number", []string{"sinks", "--volume", "loud"}, 1},
		{"unknown sink", []string{"sinks", "--sink", "pulse"}, 1},
		{"missing config file uses defaults", []string{"sinks", "--config", "/missing.json"}, 0},
		{"unknown command", []string{"rewind"}, 1},
		{"play needs a file", []string{"play"}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cli, _ := newTestCLI(t)
			code, _, stderr := run(cli, "", tc.args...)
			assert.Equal(t, tc.exitCode, code, "stderr: %s", stderr)
		})
	}
}

func TestSinksCommand(t *testing.T) {
	cli, _ := newTestCLI(t)

	code, stdout, _ := run(cli, "", "sinks")
	require.Equal(t, 0, code)
	assert.Equal(t, "auto\nmalgo\noto\nnull (configured)\n", stdout)
}

func TestLoadAndValidateConfigAppliesFlags(t *testing.T) {
	cli, memFS := newTestCLI(t)
	cli.initializeSystems()

	require.NoError(t, afero.WriteFile(memFS, "/etc/audiochan.json", []byte(`{"volume": 20, "log_level": "error"}`), 0644))
	require.NoError(t, cli.rootCmd.ParseFlags([]string{"--config", "/etc/audiochan.json", "--volume", "30", "--mute", "--sink", "oto"}))

	cfg, err := loadAndValidateConfig(cli.rootCmd, cli)
	require.NoError(t, err)

	assert.Equal(t, 30, *cfg.Volume, "flag beats file")
	assert.True(t, *cfg.Muted)
	assert.Equal(t, "oto", cfg.AudioSink, "flag beats environment")
	assert.Equal(t, "error", cfg.LogLevel)
	assert.NotNil(t, cfg.Journal, "defaults fill what the file leaves out")
}

func TestPlayToCompletion(t *testing.T) {
	cli, memFS := newTestCLI(t)
	stageClip(t, memFS, "/media/clip.wav", 150)

	code, stdout, stderr := run(cli, "", "play", "/media/clip.wav")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	assert.Contains(t, stdout, "event: started source=1")
	assert.Contains(t, stdout, "event: finished source=1")
	assert.Less(t, strings.Index(stdout, "started"), strings.Index(stdout, "finished"))
}

func TestPlayResolvesXDGMedia(t *testing.T) {
	cli, memFS := newTestCLI(t)
	mediaDir := config.NewXDGDirs().GetMediaPaths()[0]
	stageClip(t, memFS, filepath.Join(mediaDir, "chime.wav"), 50)

	code, stdout, stderr := run(cli, "", "play", "chime.wav")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "event: finished")
}

func TestPlayFailures(t *testing.T) {
	cli, memFS := newTestCLI(t)
	require.NoError(t, afero.WriteFile(memFS, "/media/noise.wav", []byte("not audio at all"), 0644))

	code, _, stderr := run(cli, "", "play", "/media/missing.wav")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to prepare source")

	code, _, stderr = run(sharing(cli), "", "play", "/media/noise.wav")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to prepare source")
}

func TestPlayTimeoutStopsRepeatingSource(t *testing.T) {
	cli, memFS := newTestCLI(t)
	stageClip(t, memFS, "/media/loop.wav", 50)

	code, stdout, stderr := run(cli, "", "play", "--repeat", "--timeout", "200ms", "/media/loop.wav")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	assert.Contains(t, stdout, "event: started")
	assert.Contains(t, stdout, "event: stopped")
	assert.NotContains(t, stdout, "event: finished")
}

func TestHistoryAfterPlayback(t *testing.T) {
	player, memFS := newTestCLI(t)
	stageClip(t, memFS, "/media/clip.wav", 50)

	code, _, stderr := run(player, "", "play", "/media/clip.wav")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	viewer := sharing(player)

	code, stdout, stderr := run(viewer, "", "history", "--session", player.sessionID)
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "EVENT")
	assert.Contains(t, stdout, "started")
	assert.Contains(t, stdout, "finished")
	assert.Contains(t, stdout, player.sessionID[:8])

	code, stdout, _ = run(sharing(viewer), "", "history", "--summary", "--since", "today")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "started")
	assert.Contains(t, stdout, "total")

	code, stdout, _ = run(sharing(viewer), "", "history", "--event", "error")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "No playback events found.")
}

func TestHistoryErrors(t *testing.T) {
	cli, _ := newTestCLI(t)
	code, _, stderr := run(cli, "", "history", "--since", "zzzz")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid --since value")

	cli, _ = newTestCLI(t)
	t.Setenv("AUDIOCHAN_JOURNAL", "false")
	code, _, stderr = run(cli, "", "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "playback journal is not enabled")
}

func TestConsoleScript(t *testing.T) {
	cli, memFS := newTestCLI(t)
	stageClip(t, memFS, "/media/clip.wav", 500)

	script := strings.Join([]string{
		"# comments and blank lines are ignored",
		"",
		"source /media/clip.wav repeat duck",
		"play",
		"settings",
		"volume 80",
		"volume +5",
		"settings",
		"volume 150",
		"mute on",
		"duck",
		"unduck",
		"focus duck",
		"bogus",
		"stop",
		"offset",
		"quit",
		"play",
	}, "\n")

	code, stdout, stderr := run(cli, script, "console")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	for _, expected := range []string{
		"source 1\n",
		"play ok\n",
		"volume=50 muted=false\n",
		"volume=85 muted=false\n",
		"volume failed\n",
		"mute ok\n",
		"duck ok\n",
		"unduck ok\n",
		"focus REPORT_DUCKING_STARTED reported\n",
		"unknown command: bogus",
		"stop ok\n",
		"offset ",
		"event: started source=1",
		"event: stopped source=1",
	} {
		assert.Contains(t, stdout, expected)
	}
	assert.Equal(t, 1, strings.Count(stdout, "play ok"), "commands after quit are not run")
	assert.NotContains(t, stdout, "> ", "no prompt without a terminal")
}

func TestConsoleWithInitialFile(t *testing.T) {
	cli, memFS := newTestCLI(t)
	stageClip(t, memFS, "/media/clip.wav", 250)

	code, stdout, stderr := run(cli, "duration\npause\nresume 7\nmute maybe\n", "console", "/media/clip.wav")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	assert.Contains(t, stdout, "source 1\n")
	assert.Contains(t, stdout, "duration 250ms\n")
	assert.Contains(t, stdout, "pause failed\n", "nothing is playing yet")
	assert.Contains(t, stdout, "resume failed\n", "stale id")
	assert.Contains(t, stdout, "usage: mute on|off")
}

func TestParseOffset(t *testing.T) {
	testCases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"1500", "1.5s", false},
		{"0", "0s", false},
		{"250ms", "250ms", false},
		{"2m", "2m0s", false},
		{"-5", "", true},
		{"-1s", "", true},
		{"soon", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseOffset(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestSetupLoggingWithFile(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logPath := filepath.Join(t.TempDir(), "logs", "audiochan.log")
	cm := config.NewConfigManagerWithFilesystem(afero.NewMemMapFs())
	cfg := cm.GetDefaultConfig()
	cfg.LogLevel = "error"
	cfg.FileLogging.Enabled = true
	cfg.FileLogging.Filename = logPath

	var stderr bytes.Buffer
	setupLogging(cfg, cm, &stderr)

	slog.Debug("only in the file")
	slog.Error("everywhere")

	assert.NotContains(t, stderr.String(), "only in the file")
	assert.Contains(t, stderr.String(), "everywhere")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "only in the file")
	assert.Contains(t, string(data), "everywhere")
}

func TestInitializeJournalDegradesGracefully(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	cli := NewCLI()
	cfg := &config.Config{Journal: &config.JournalConfig{Enabled: true, DatabasePath: filepath.Join(blocker, "journal.db")}}
	cli.initializeJournal(cfg)
	assert.Nil(t, cli.journalDB)

	cli.initializeJournal(&config.Config{Journal: &config.JournalConfig{Enabled: false}})
	assert.Nil(t, cli.journalDB)
}

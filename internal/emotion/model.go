// Package emotion scores audio for emotional distress using ONNX
// classifier models. Each model becomes one vote in the detection engine;
// a model that fails to load simply sits out the vote.
package emotion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Model wraps one ONNX emotion classifier session. Inference is serialized
// because the session reuses its input and output tensors.
type Model struct {
	session  *ort.AdvancedSession
	labels   []string
	inputLen int

	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]

	mu sync.Mutex
}

// ModelConfig locates one classifier bundle on disk.
type ModelConfig struct {
	// ModelPath is the .onnx file; a label_map.json is expected next to it.
	ModelPath string
	// InputLen is the fixed feature vector length the model expects.
	InputLen int
}

var initOnce sync.Once

func ensureRuntime() error {
	var err error
	initOnce.Do(func() {
		if lib := resolveSharedLibraryPath(); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if !ort.IsInitialized() {
			err = ort.InitializeEnvironment()
		}
	})
	if err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	if !ort.IsInitialized() {
		return fmt.Errorf("onnxruntime is not initialized")
	}
	return nil
}

// LoadModel opens an ONNX classifier bundle.
func LoadModel(cfg ModelConfig) (*Model, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is empty")
	}
	if cfg.InputLen <= 0 {
		return nil, fmt.Errorf("input length must be positive")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if err := ensureRuntime(); err != nil {
		return nil, err
	}

	labels, err := loadLabels(labelMapPath(cfg.ModelPath))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.InputLen)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input"},
		[]string{"logits"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Model{
		session:  session,
		labels:   labels,
		inputLen: cfg.InputLen,
		input:    input,
		output:   output,
	}, nil
}

// Labels returns the model's native output classes in index order.
func (m *Model) Labels() []string { return m.labels }

// Infer runs the classifier over a feature vector. The vector is padded or
// truncated to the model's expected input length.
func (m *Model) Infer(features []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in := m.input.GetData()
	for i := range in {
		if i < len(features) {
			in[i] = features[i]
		} else {
			in[i] = 0
		}
	}

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	out := m.output.GetData()
	logits := make([]float32, len(out))
	copy(logits, out)
	return logits, nil
}

// Close releases the session and its tensors.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
	return nil
}

func labelMapPath(modelPath string) string {
	return filepath.Join(filepath.Dir(modelPath), "label_map.json")
}

// loadLabels accepts either a JSON array or an {"0": "label"} object.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// resolveSharedLibraryPath locates the onnxruntime shared library.
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise common install locations
// are probed.
func resolveSharedLibraryPath() string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
	}
	dirs := []string{
		".",
		"/usr/local/lib",
		"/usr/lib",
		"/opt/homebrew/lib",
	}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

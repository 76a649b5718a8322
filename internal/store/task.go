package store

const KindTask = "directive_task"

// TaskDoc is a <slug>.task.json document.
type TaskDoc struct {
	Kind          string   `json:"kind"`
	SchemaVersion string   `json:"schema_version"`
	Meta          TaskMeta `json:"meta"`
	Task          TaskSpec `json:"task"`
}

type TaskMeta struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority"`
	SessionPriority string   `json:"session_priority"`
	Owner           string   `json:"owner"`
	Assignee        string   `json:"assignee"`
	Bucket          string   `json:"bucket"`
	Created         string   `json:"created"`
	Updated         string   `json:"updated"`
	Tags            []string `json:"tags"`
	Effort          string   `json:"effort"`
	DependsOn       []string `json:"depends_on"`
	BlockedBy       []string `json:"blocked_by"`
	Related         []string `json:"related"`
	Summary         string   `json:"summary"`
	ExecutionModel  string   `json:"execution_model"`
	ThinkingLevel   string   `json:"thinking_level"`
}

// TaskSpec is the executable body of a task.
type TaskSpec struct {
	Objective      string        `json:"objective"`
	Constraints    []string      `json:"constraints"`
	AllowedFiles   []AllowedFile `json:"allowed_files"`
	Steps          []Step        `json:"steps"`
	Validation     Validation    `json:"validation"`
	ExpectedOutput []string      `json:"expected_output"`
	StopConditions []string      `json:"stop_conditions"`
	Notes          []string      `json:"notes"`
}

type AllowedFile struct {
	Path   string `json:"path"`
	Access string `json:"access"`
	Note   string `json:"note,omitempty"`
}

type Step struct {
	ID          string   `json:"id"`
	Instruction string   `json:"instruction"`
	Files       []string `json:"files"`
	Artifact    string   `json:"artifact"`
}

type Validation struct {
	Commands []string `json:"commands"`
}

func (d *TaskDoc) Encode() ([]byte, error) {
	return encode(d, CheckTask)
}

func ReadTask(path string) (*TaskDoc, error) {
	var doc TaskDoc
	if err := read(path, CheckTask, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateTask writes doc to path. Existing task files are never overwritten.
func CreateTask(path string, doc *TaskDoc) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	return writeNew(path, data)
}

package remote

// Ops understood by the server.
const (
	opExec    = "exec"
	opQuery   = "query"
	opNext    = "next"
	opRelease = "release"
	opPing    = "ping"
	opClose   = "close"
)

// defaultBatch is how many rows a next frame carries unless the client
// asks for fewer.
const defaultBatch = 64

// request is one client frame.
type request struct {
	Op    string      `json:"op"`
	SQL   string      `json:"sql,omitempty"`
	Binds []WireValue `json:"binds,omitempty"`
	// Handle names a server-side result set for next and release.
	Handle string `json:"handle,omitempty"`
	Batch  int    `json:"batch,omitempty"`
}

// wireColumn describes one result column.
type wireColumn struct {
	Name string `json:"name"`
	Type int    `json:"type"`
}

// response is one server frame. Status is a taxonomy code; zero means the
// operation succeeded and the payload fields are valid.
type response struct {
	Status   int           `json:"status"`
	Error    string        `json:"error,omitempty"`
	Affected int64         `json:"affected,omitempty"`
	Handle   string        `json:"handle,omitempty"`
	Columns  []wireColumn  `json:"columns,omitempty"`
	Rows     [][]WireValue `json:"rows,omitempty"`
	EOF      bool          `json:"eof,omitempty"`
}

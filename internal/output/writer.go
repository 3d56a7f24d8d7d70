package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/zx06/tokey/internal/errors"
)

type Writer struct {
	Out io.Writer
	Err io.Writer
}

func New(out, err io.Writer) Writer {
	return Writer{Out: out, Err: err}
}

func (w Writer) WriteOK(format Format, data any) error {
	return w.write(w.Out, format, Envelope{OK: true, SchemaVersion: SchemaVersion, Data: data})
}

// WriteError 把错误信封写到 Err；stdout 仅保留给凭据数据与 OK 信封。
func (w Writer) WriteError(format Format, te *errors.TError) error {
	errObj := &ErrorObject{Code: te.Code, Message: te.Message, Details: te.Details}
	return w.write(w.Err, format, Envelope{OK: false, SchemaVersion: SchemaVersion, Error: errObj})
}

// WriteCredential 把字段映射按 get 契约写到 stdout：无信封的 JSON 文档。
func (w Writer) WriteCredential(fields map[string]string) error {
	enc := json.NewEncoder(w.Out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(fields)
}

// WriteField 输出单个字段的裸值（get --field）。
func (w Writer) WriteField(value string) error {
	_, err := fmt.Fprintln(w.Out, value)
	return err
}

func (w Writer) write(dst io.Writer, format Format, env Envelope) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(dst)
		enc.SetEscapeHTML(false)
		return enc.Encode(env)
	case FormatYAML:
		b, err := yaml.Marshal(env)
		if err != nil {
			return err
		}
		_, err = dst.Write(b)
		if err != nil {
			return err
		}
		if len(b) == 0 || b[len(b)-1] != '\n' {
			_, _ = dst.Write([]byte("\n"))
		}
		return nil
	case FormatTable:
		return writeTable(dst, env)
	default:
		return errors.New(errors.CodeCfgInvalid, "invalid output format", map[string]any{"format": string(format)})
	}
}

func writeTable(out io.Writer, env Envelope) error {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	if env.OK {
		_, _ = fmt.Fprintf(tw, "ok\t%v\n", true)
		_, _ = fmt.Fprintf(tw, "schema_version\t%d\n", env.SchemaVersion)
		if env.Data != nil {
			b, _ := json.MarshalIndent(env.Data, "", "  ")
			_, _ = fmt.Fprintf(tw, "data\t%s\n", strings.ReplaceAll(string(b), "\n", " "))
		}
	} else {
		_, _ = fmt.Fprintf(tw, "ok\t%v\n", false)
		_, _ = fmt.Fprintf(tw, "schema_version\t%d\n", env.SchemaVersion)
		if env.Error != nil {
			_, _ = fmt.Fprintf(tw, "error.code\t%s\n", env.Error.Code)
			_, _ = fmt.Fprintf(tw, "error.message\t%s\n", env.Error.Message)
		}
	}
	return tw.Flush()
}

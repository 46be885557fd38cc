package file_test

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/lawrencejones/convsink/pkg/serialize"
	"github.com/lawrencejones/convsink/pkg/sink"
	"github.com/lawrencejones/convsink/pkg/sinks/file"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Writer", func() {
	var (
		buffer *bytes.Buffer
		writer *file.Writer
	)

	BeforeEach(func() {
		buffer = new(bytes.Buffer)
		writer = file.NewWriter(logger, buffer, &serialize.JSON{})
	})

	It("writes each value of a batch on its own line", func() {
		Expect(writer.Add([]interface{}{1.0, "two", map[string]interface{}{"three": 3.0}})).To(Succeed())
		Expect(buffer.String()).To(Equal("1\n\"two\"\n{\"three\":3}\n"))
	})

	It("rejects batches once closed", func() {
		Expect(writer.Close()).To(Succeed())
		Expect(writer.Add([]interface{}{1.0})).To(MatchError(sink.ErrClosed))
	})

	It("closes on error, keeping what was written", func() {
		Expect(writer.Add([]interface{}{1.0})).To(Succeed())
		Expect(writer.AddError(fmt.Errorf("boom"))).To(Succeed())

		Expect(buffer.String()).To(Equal("1\n"))
		Expect(writer.Add([]interface{}{2.0})).To(MatchError(sink.ErrClosed))
	})

	It("fails on values that can't be serialized", func() {
		Expect(writer.Add([]interface{}{make(chan int)})).To(MatchError(ContainSubstring("failed to marshal value")))
		Expect(buffer.String()).To(BeEmpty())
	})
})

var _ = Describe("New", func() {
	var (
		dir  string
		opts file.Options
	)

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "convsink")
		Expect(err).NotTo(HaveOccurred())

		opts = file.Options{Path: filepath.Join(dir, "out.yaml"), Format: "yaml", BufferSize: 2, Instrument: true}
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("writes buffered values to the file, flushing on close", func() {
		output, err := file.New(logger, opts)
		Expect(err).NotTo(HaveOccurred())

		Expect(output.Add("a")).To(Succeed())
		Expect(output.Add("b")).To(Succeed())
		Expect(output.Add("c")).To(Succeed())

		Expect(ioutil.ReadFile(opts.Path)).To(Equal([]byte("---\na\n---\nb\n")), "only full batches are written")

		Expect(output.Close()).To(Succeed())
		Expect(ioutil.ReadFile(opts.Path)).To(Equal([]byte("---\na\n---\nb\n---\nc\n")))
	})

	It("rejects unknown formats", func() {
		opts.Format = "xml"

		_, err := file.New(logger, opts)
		Expect(err).To(MatchError("unsupported output format: xml"))
	})

	It("fails when the file can't be opened", func() {
		opts.Path = filepath.Join(dir, "missing", "out.yaml")

		_, err := file.New(logger, opts)
		Expect(err).To(MatchError(ContainSubstring("failed to open")))
	})
})

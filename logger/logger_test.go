package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/visitload/logger"
)

var _ = Describe("Logger", func() {
	var (
		log       *logger.LoggerImpl
		logOutput *bytes.Buffer
	)

	readEntry := func() map[string]interface{} {
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())
		return actual
	}

	BeforeEach(func() {
		log = logger.NewLogger("test-service", "debug", true)
		log.SetJSONFormat(true)
		logOutput = bytes.NewBufferString("")
		log.SetOutput(logOutput)
	})

	It("Should have `test-service` as service name", func() {
		log.Info("Testing")
		Expect(readEntry()["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		log.Info("Testing")
		Expect(readEntry()["level"]).To(Equal("info"))
	})

	It("Should have warning as log level", func() {
		log.Warn("Testing")
		Expect(readEntry()["level"]).To(Equal("warning"))
	})

	It("Should add a stack trace to errors when stack dumps are enabled", func() {
		log.Error("Testing")
		actual := readEntry()
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		log.Info("Testing")
		Expect(readEntry()["msg"]).To(Equal("Testing"))
	})

	It("Should carry fields added with WithField", func() {
		log.WithField("runId", "abc123").Info("Testing")
		actual := readEntry()
		Expect(actual["runId"]).To(Equal("abc123"))
		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should drop debug entries when the level is info", func() {
		infoLog := logger.NewLogger("test-service", "info", false)
		infoLog.SetJSONFormat(true)
		infoLog.SetOutput(logOutput)
		infoLog.Debug("hidden")
		Expect(logOutput.Len()).To(BeZero())
	})
})

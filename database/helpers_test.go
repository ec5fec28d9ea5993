/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type gadget struct {
	bun.BaseModel `bun:"table:gadgets,alias:g"`

	Code  string `bun:"code,pk,notnull,nullzero,type:varchar(4)"`
	Label string `bun:"label,notnull,nullzero,type:varchar(20)"`
	Note  string `bun:"note"`
}

type untagged struct {
	Name string `bun:"name"`
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func memoryURL(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

func gadgetRegistry() ModelRegistry {
	r := NewModelRegistry()
	r.Register(NewModelAdapter((*gadget)(nil), 0))
	return r
}

func openGadgetClient(t *testing.T, opts ...ClientOption) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ConnectionConfig.URL = memoryURL(t)
	cfg.SchemaConfig.CreateOnStartup = true

	opts = append([]ClientOption{WithLogger(NopLogger()), WithRegistry(gadgetRegistry())}, opts...)
	client, err := Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type logRecord struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (l *recordingLogger) add(level, msg string, fields []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, logRecord{level: level, msg: msg, fields: toFields(fields)})
}

func (l *recordingLogger) find(msg string) (logRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.msg == msg {
			return r, true
		}
	}
	return logRecord{}, false
}

func (l *recordingLogger) SetLevel(LogLevel) {}
func (l *recordingLogger) Debug(msg string, fields ...interface{}) { l.add("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...interface{})  { l.add("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...interface{})  { l.add("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...interface{}) { l.add("error", msg, fields) }

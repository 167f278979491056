package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Nodes []struct {
		Label string `json:"label"`
	} `json:"nodes"`
}

func TestExtractJSONFromFencedOutput(t *testing.T) {
	raw := "好的，识别结果如下：\n```json\n{\"nodes\":[{\"label\":\"开始 {a}\"},{\"label\":\"审批\"}]}\n```\n以上。"
	out, err := ExtractJSON[sample](raw, nil)
	require.NoError(t, err)
	require.Len(t, out.Nodes, 2)
	assert.Equal(t, "开始 {a}", out.Nodes[0].Label)
}

func TestExtractJSONErrors(t *testing.T) {
	_, err := ExtractJSON[sample]("no json here", nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)

	_, err = ExtractJSON[sample](`{"nodes": 3}`, nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)

	_, err = ExtractJSON(`{"nodes": []}`, func(s sample) error {
		if len(s.Nodes) == 0 {
			return errors.New("empty")
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

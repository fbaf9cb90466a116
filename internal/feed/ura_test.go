package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURADecoder_Decode(t *testing.T) {
	payload := `[4,"1.0",1718438400000]
[1,"Bushof","5","Uniklinik","24567",1718438460000,1718438520000]
[1,"Bushof",33,"Vaals",24568,1718438580000,1718438640000]

[1,"Bushof","45","Brand",1718438700000,1718438760000]
`

	predictions, skipped, err := URADecoder{Direction: "1"}.Decode(context.Background(), []byte(payload))

	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, predictions, 3)

	assert.Equal(t, "24567", predictions[0].TripID)
	assert.Equal(t, "5", predictions[0].LineName)
	assert.Equal(t, "Uniklinik", predictions[0].DestinationText)
	assert.Equal(t, "1", predictions[0].Track)
	assert.True(t, time.UnixMilli(1718438460000).Equal(predictions[0].PlannedTime))
	assert.Nil(t, predictions[0].ActualTime)

	assert.Equal(t, "24568", predictions[1].TripID)
	assert.Equal(t, "33", predictions[1].LineName)

	assert.Empty(t, predictions[2].TripID)
	assert.Equal(t, "Brand", predictions[2].DestinationText)
	assert.True(t, time.UnixMilli(1718438700000).Equal(predictions[2].PlannedTime))
}

func TestURADecoder_SkipsBadRecords(t *testing.T) {
	payload := `[1,"Bushof","5","Uniklinik","24567",1718438460000,1718438520000]
not json
[]
["x"]
[1,"Bushof","5"]
[1,"Bushof","5","Uniklinik","24569","soon",1718438520000]
[1,"Bushof","5","Uniklinik","24570",0,1718438520000]
[2,"something","else"]`

	predictions, skipped, err := URADecoder{Direction: "1"}.Decode(context.Background(), []byte(payload))

	require.NoError(t, err)
	assert.Equal(t, 6, skipped)
	require.Len(t, predictions, 1)
	assert.Equal(t, "24567", predictions[0].TripID)
}

func TestURADecoder_Empty(t *testing.T) {
	predictions, skipped, err := URADecoder{Direction: "1"}.Decode(context.Background(), []byte("\n\n"))

	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Empty(t, predictions)
}

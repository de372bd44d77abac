package importer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odbbridge/internal/domain"
	"odbbridge/internal/services/importer"
)

func barMesh() domain.MeshDocument {
	return domain.MeshDocument{Instances: []domain.InstanceMesh{{
		Name:     "PART-1-1",
		Nodes:    []domain.Node{{Label: 1}, {Label: 2, X: 1}},
		Elements: []domain.Element{{Label: 1, Type: "DC1D2", Connectivity: []int{1, 2}}},
	}}}
}

func oneFrameCatalog() domain.StepCatalog {
	return domain.StepCatalog{Steps: []domain.Step{{
		Name: "Thermal_Step", Domain: "TIME", NumFrames: 1,
		Frames: []domain.Frame{{Index: 0, Value: 5, Description: "Increment 0"}},
	}}}
}

func nodalBucket(labels []int, values [][]float64) domain.FieldBucket {
	return domain.FieldBucket{
		Step: "Thermal_Step", FrameIndex: 0, FrameValue: 5,
		Instance: "PART-1-1", Position: domain.Nodal,
		Labels: labels, Values: values,
	}
}

func runImport(t *testing.T, spy *spyStore, mesh domain.MeshDocument, cat domain.StepCatalog, set importer.Settings, buckets ...domain.FieldBucket) (importer.Summary, error) {
	t.Helper()
	svc := importer.New(spy, &memMesh{doc: mesh}, &memCatalog{cat: cat}, set, nil)
	return svc.Import("out.db", &sliceReader{buckets: buckets})
}

func indexOf(events []string, prefix string) int {
	for i, e := range events {
		if strings.HasPrefix(e, prefix) {
			return i
		}
	}
	return -1
}

func TestImport_GeometryBarrierOrdering(t *testing.T) {
	spy := newSpy()
	_, err := runImport(t, spy, barMesh(), oneFrameCatalog(), importer.DefaultSettings(),
		nodalBucket([]int{1, 2}, [][]float64{{20}, {30}}))
	require.NoError(t, err)

	save := indexOf(spy.events, "geometry.save")
	closeG := indexOf(spy.events, "geometry.close")
	open := indexOf(spy.events, "results.open")
	require.GreaterOrEqual(t, save, 0)
	assert.Less(t, save, closeG)
	assert.Less(t, closeG, open)

	saves := 0
	for i, e := range spy.events {
		switch {
		case e == "geometry.save":
			saves++
		case strings.HasPrefix(e, "geometry."):
			if e != "geometry.close" && e != "geometry.create" {
				assert.Less(t, i, save, "geometry write %q after save", e)
			}
		case strings.HasPrefix(e, "results."):
			assert.Greater(t, i, closeG, "results call %q before geometry commit", e)
		}
	}
	assert.Equal(t, 1, saves)
	assert.Equal(t, "results.close", spy.events[len(spy.events)-1])
	assert.Equal(t, "results.save", spy.events[len(spy.events)-2])
}

func TestImport_TwoNodeScenario(t *testing.T) {
	spy := newSpy()
	sum, err := runImport(t, spy, barMesh(), oneFrameCatalog(), importer.DefaultSettings(),
		nodalBucket([]int{1, 2}, [][]float64{{20}, {30}}))
	require.NoError(t, err)

	require.Len(t, spy.data, 1)
	got := spy.data[0].block
	assert.Equal(t, []int{1, 2}, got.Labels)
	assert.Equal(t, [][]float64{{20}, {30}}, got.Data)
	assert.Nil(t, got.SectionPoint)
	assert.Equal(t, spy.instances["PART-1-1"], got.Instance)

	assert.Contains(t, spy.events, "geometry.part PART_FROM_PART-1-1")
	assert.Equal(t, 1, sum.Instances)
	assert.Equal(t, 1, sum.Steps)
	assert.Equal(t, 1, sum.Frames)
	assert.Equal(t, 1, sum.Buckets)
	assert.Equal(t, 2, sum.Values)
	assert.Equal(t, 0, sum.LazyFrames)

	fr := spy.frames[spy.outputs[spy.data[0].fo.ID]]
	assert.Equal(t, 0, fr.increment)
	assert.Equal(t, 5.0, fr.value)
	assert.Equal(t, "Increment 0", fr.description)
}

func TestImport_ElementsGroupedByType(t *testing.T) {
	mesh := domain.MeshDocument{Instances: []domain.InstanceMesh{{
		Name:  "MIX",
		Nodes: []domain.Node{{Label: 1}, {Label: 2}, {Label: 3}, {Label: 4}},
		Elements: []domain.Element{
			{Label: 1, Type: "DC2D3", Connectivity: []int{1, 2, 3}},
			{Label: 2, Type: "DC2D4", Connectivity: []int{1, 2, 3, 4}},
			{Label: 3, Type: "DC2D3", Connectivity: []int{2, 3, 4}},
		},
	}}}
	spy := newSpy()
	_, err := runImport(t, spy, mesh, domain.StepCatalog{}, importer.DefaultSettings())
	require.NoError(t, err)

	var batches []elementBatch
	for _, b := range spy.elements {
		batches = append(batches, b...)
	}
	require.Len(t, batches, 2)
	assert.Equal(t, "DC2D3", batches[0].typ)
	assert.Equal(t, []int{1, 3}, []int{batches[0].elems[0].Label, batches[0].elems[1].Label})
	assert.Equal(t, "DC2D4", batches[1].typ)
	assert.Len(t, batches[1].elems, 1)
}

func TestImport_PointCloudInstance(t *testing.T) {
	mesh := domain.MeshDocument{Instances: []domain.InstanceMesh{{
		Name: "CLOUD", Nodes: []domain.Node{{Label: 1}}, Elements: []domain.Element{},
	}}}
	spy := newSpy()
	_, err := runImport(t, spy, mesh, domain.StepCatalog{}, importer.DefaultSettings())
	require.NoError(t, err)
	assert.Empty(t, spy.elements)
	assert.Contains(t, spy.events, "geometry.nodes 1")
	assert.Contains(t, spy.events, "geometry.instance CLOUD")
}

func TestImport_PoolsSectionPointsAndFieldOutputs(t *testing.T) {
	top := func() *domain.SectionPoint { return &domain.SectionPoint{Number: 5, Description: "Top"} }
	ipBucket := func(inst string, sp *domain.SectionPoint, label int) domain.FieldBucket {
		return domain.FieldBucket{
			Step: "Thermal_Step", FrameIndex: 0, FrameValue: 5, Instance: inst,
			Position: domain.IntegrationPoint, SectionPoint: sp,
			Labels: []int{label}, Values: [][]float64{{float64(label)}},
		}
	}
	mesh := barMesh()
	mesh.Instances = append(mesh.Instances, domain.InstanceMesh{Name: "PART-2-1", Nodes: []domain.Node{{Label: 1}}})

	wholeWithSP := domain.FieldBucket{
		Step: "Thermal_Step", FrameIndex: 0, FrameValue: 5, Instance: "PART-1-1",
		Position: domain.WholeElement, SectionPoint: top(),
		Labels: []int{1}, Values: [][]float64{{1}},
	}
	spy := newSpy()
	sum, err := runImport(t, spy, mesh, oneFrameCatalog(), importer.DefaultSettings(),
		ipBucket("PART-1-1", top(), 1),
		ipBucket("PART-2-1", top(), 1),
		ipBucket("PART-1-1", &domain.SectionPoint{Number: 1, Description: "Bottom"}, 1),
		ipBucket("PART-1-1", nil, 1),
		wholeWithSP,
	)
	require.NoError(t, err)

	assert.Equal(t, []domain.SectionPoint{{Number: 5, Description: "Top"}, {Number: 1, Description: "Bottom"}}, spy.sps)
	assert.Equal(t, 2, sum.SectionPoints)
	assert.Equal(t, 1, sum.FieldOutputs)
	assert.Len(t, spy.outputs, 1)

	require.Len(t, spy.data, 5)
	assert.NotNil(t, spy.data[0].block.SectionPoint)
	assert.Equal(t, *spy.data[0].block.SectionPoint, *spy.data[1].block.SectionPoint)
	assert.NotEqual(t, *spy.data[0].block.SectionPoint, *spy.data[2].block.SectionPoint)
	assert.Nil(t, spy.data[3].block.SectionPoint)
	assert.Nil(t, spy.data[4].block.SectionPoint, "section point only travels with INTEGRATION_POINT data")
	for _, d := range spy.data {
		assert.Equal(t, spy.data[0].fo, d.fo)
	}
}

func TestImport_LazyStepAndFrame(t *testing.T) {
	spy := newSpy()
	late := nodalBucket([]int{1}, [][]float64{{7}})
	late.FrameIndex, late.FrameValue = 3, 9
	orphan := nodalBucket([]int{2}, [][]float64{{8}})
	orphan.Step, orphan.FrameIndex, orphan.FrameValue = "Cooldown", 0, -2

	sum, err := runImport(t, spy, barMesh(), oneFrameCatalog(), importer.DefaultSettings(), late, orphan)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.LazyFrames)
	assert.Equal(t, 2, sum.Steps)
	assert.Equal(t, 3, sum.Frames)

	cool, ok := spy.steps["Cooldown"]
	require.True(t, ok)
	assert.Equal(t, "TIME", cool.domain)
	assert.Equal(t, 0.0, cool.timePeriod)
	assert.Equal(t, 2, sum.FieldOutputs)
}

func TestImport_TimePeriodFromLastFrame(t *testing.T) {
	cat := domain.StepCatalog{Steps: []domain.Step{
		{Name: "A", Domain: "TIME", Frames: []domain.Frame{{Index: 0, Value: 1}, {Index: 1, Value: 12.5}}},
		{Name: "B", Domain: "TIME", Frames: []domain.Frame{{Index: 0, Value: -4}}},
		{Name: "C", Domain: ""},
		{Name: "D", Domain: "FREQUENCY"},
	}}
	spy := newSpy()
	_, err := runImport(t, spy, barMesh(), cat, importer.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 12.5, spy.steps["A"].timePeriod)
	assert.Equal(t, 0.0, spy.steps["B"].timePeriod)
	assert.Equal(t, 0.0, spy.steps["C"].timePeriod)
	assert.Equal(t, "TIME", spy.steps["C"].domain)
	assert.Equal(t, "FREQUENCY", spy.steps["D"].domain)
}

func TestImport_StepFilter(t *testing.T) {
	cat := oneFrameCatalog()
	cat.Steps = append(cat.Steps, domain.Step{Name: "Other", Domain: "TIME", Frames: []domain.Frame{{Index: 0}}})
	other := nodalBucket([]int{1}, [][]float64{{1}})
	other.Step = "Other"

	set := importer.DefaultSettings()
	set.Steps = []string{"Thermal_Step"}
	spy := newSpy()
	sum, err := runImport(t, spy, barMesh(), cat, set, nodalBucket([]int{1}, [][]float64{{1}}), other)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Steps)
	assert.Equal(t, 1, sum.Buckets)
	assert.Equal(t, 1, sum.SkippedBuckets)
	_, ok := spy.steps["Other"]
	assert.False(t, ok)
}

func TestImport_UnknownInstanceIsFatal(t *testing.T) {
	b := nodalBucket([]int{1}, [][]float64{{1}})
	b.Instance = "GHOST"
	spy := newSpy()
	_, err := runImport(t, spy, barMesh(), oneFrameCatalog(), importer.DefaultSettings(), b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownInstance))
	assert.NotContains(t, spy.events, "results.save")
	assert.Equal(t, "results.close", spy.events[len(spy.events)-1], "store closed on the error path")
}

func TestImport_InvalidBucketIsFatal(t *testing.T) {
	for name, b := range map[string]domain.FieldBucket{
		"misaligned": nodalBucket([]int{1, 2}, [][]float64{{1}}),
		"duplicate":  nodalBucket([]int{1, 1}, [][]float64{{1}, {2}}),
		"position": func() domain.FieldBucket {
			b := nodalBucket([]int{1}, [][]float64{{1}})
			b.Position = "CENTROID"
			return b
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			spy := newSpy()
			_, err := runImport(t, spy, barMesh(), oneFrameCatalog(), importer.DefaultSettings(), b)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrBucketInvalid))
			assert.Empty(t, spy.data)
		})
	}
}

func TestImport_GeometryFailureClosesAndSkipsResults(t *testing.T) {
	mesh := barMesh()
	mesh.Instances = append(mesh.Instances, mesh.Instances[0]) // duplicate part name
	spy := newSpy()
	failing := &dupPartSpy{spyStore: spy}
	svc := importer.New(failing, &memMesh{doc: mesh}, &memCatalog{cat: oneFrameCatalog()}, importer.DefaultSettings(), nil)
	_, err := svc.Import("out.db", &sliceReader{})
	require.Error(t, err)
	assert.Equal(t, "geometry.close", spy.events[len(spy.events)-1])
	assert.Equal(t, -1, indexOf(spy.events, "geometry.save"))
	assert.Equal(t, -1, indexOf(spy.events, "results."))
}

// dupPartSpy rejects a second part with the same name.
type dupPartSpy struct{ *spyStore }

func (d *dupPartSpy) Create(path string, meta domain.StoreMeta) (domain.GeometryWriter, error) {
	g, err := d.spyStore.Create(path, meta)
	if err != nil {
		return nil, err
	}
	return &dupPartGeometry{GeometryWriter: g, seen: map[string]bool{}}, nil
}

type dupPartGeometry struct {
	domain.GeometryWriter
	seen map[string]bool
}

func (g *dupPartGeometry) Part(name string) (domain.PartRef, error) {
	if g.seen[name] {
		return domain.PartRef{}, errors.New("duplicate part")
	}
	g.seen[name] = true
	return g.GeometryWriter.Part(name)
}

func TestImport_UnsupportedDomainFallsBackToTime(t *testing.T) {
	cat := domain.StepCatalog{Steps: []domain.Step{
		{Name: "Buckle", Domain: "BUCKLING", Frames: []domain.Frame{{Index: 0, Value: 3}}},
	}}
	spy := newSpy()
	sum, err := runImport(t, spy, barMesh(), cat, importer.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Steps)
	assert.Equal(t, "TIME", spy.steps["Buckle"].domain)
	assert.Equal(t, 3.0, spy.steps["Buckle"].timePeriod)
}

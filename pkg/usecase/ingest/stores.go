package ingest

import (
	"context"

	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/repository"
	"github.com/m-mizutani/memoir/pkg/service/cluster"
	"github.com/m-mizutani/memoir/pkg/service/vecindex"
)

// stores bundles every mutable index of one collection during ingestion
type stores struct {
	caption   *vecindex.Index
	text      *vecindex.Index
	rag       *vecindex.Index
	composite *vecindex.Index
	knowledge *vecindex.Index

	objects    *cluster.AtomicStore
	people     *cluster.AtomicStore
	activities *cluster.AtomicStore
	location   *cluster.AtomicStore

	events []*model.CompositeEvent
	facts  []*model.Knowledge
	faces  *cluster.FaceGrouper
}

func (u *UseCase) loadStores(ctx context.Context) (*stores, error) {
	st := &stores{}

	indexes := []struct {
		axis repository.Axis
		dst  **vecindex.Index
	}{
		{repository.AxisCaption, &st.caption},
		{repository.AxisText, &st.text},
		{repository.AxisRAG, &st.rag},
		{repository.AxisComposite, &st.composite},
		{repository.AxisKnowledge, &st.knowledge},
	}
	for _, x := range indexes {
		index, err := u.repo.LoadIndex(ctx, x.axis)
		if err != nil {
			return nil, err
		}
		*x.dst = index
	}

	atomics := []struct {
		axis repository.Axis
		dst  **cluster.AtomicStore
	}{
		{repository.AxisObjects, &st.objects},
		{repository.AxisPeople, &st.people},
		{repository.AxisActivities, &st.activities},
		{repository.AxisLocation, &st.location},
	}
	for _, x := range atomics {
		index, err := u.repo.LoadIndex(ctx, x.axis)
		if err != nil {
			return nil, err
		}
		*x.dst = cluster.LoadAtomicStore(string(x.axis), index)
	}

	events, err := u.repo.LoadCompositeEvents(ctx)
	if err != nil {
		return nil, err
	}
	st.events = events

	facts, err := u.repo.LoadKnowledge(ctx)
	if err != nil {
		return nil, err
	}
	st.facts = facts

	faceClusters, err := u.repo.LoadFaceClusters(ctx)
	if err != nil {
		return nil, err
	}
	st.faces = cluster.LoadFaceGrouper(faceClusters)

	return st, nil
}

func (u *UseCase) saveStores(ctx context.Context, st *stores) error {
	indexes := []struct {
		axis repository.Axis
		src  *vecindex.Index
	}{
		{repository.AxisCaption, st.caption},
		{repository.AxisText, st.text},
		{repository.AxisRAG, st.rag},
		{repository.AxisComposite, st.composite},
		{repository.AxisKnowledge, st.knowledge},
		{repository.AxisObjects, st.objects.Index()},
		{repository.AxisPeople, st.people.Index()},
		{repository.AxisActivities, st.activities.Index()},
		{repository.AxisLocation, st.location.Index()},
	}
	for _, x := range indexes {
		if err := u.repo.SaveIndex(ctx, x.axis, x.src); err != nil {
			return err
		}
	}

	if err := u.repo.SaveCompositeEvents(ctx, st.events); err != nil {
		return err
	}
	if err := u.repo.SaveKnowledge(ctx, st.facts); err != nil {
		return err
	}
	return u.repo.SaveFaceClusters(ctx, st.faces.Clusters())
}

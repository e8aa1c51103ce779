package domain

import (
	"context"
	"log/slog"

	"gooze.dev/pkg/testsynth/internal/controller"
	m "gooze.dev/pkg/testsynth/internal/model"
	"gooze.dev/pkg/testsynth/pkg/coverage"
)

// List shows every registered class with its members and goal counts.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	if err := w.ui.Start(ctx, controller.WithListMode()); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	criteria := args.Criteria
	if len(criteria) == 0 {
		criteria = coverage.AllCriteria
	}

	loader := w.newLoader()
	classes := make([]m.ClassInfo, 0)

	for _, name := range w.registry.Names() {
		class, err := loader.LoadClass(name)
		if err != nil {
			slog.Warn("Failed to load class", "class", name, "error", err)
			continue
		}

		if args.TargetClass != "" && args.TargetClass != name && args.TargetClass != class.Name() {
			continue
		}

		info := m.ClassInfo{
			Name:    class.Name(),
			Package: class.Package(),
			Goals:   map[string]int{},
		}

		for _, ctor := range class.Constructors() {
			info.Constructors = append(info.Constructors, ctor.Name())
		}

		for _, method := range class.Methods() {
			info.Methods = append(info.Methods, memberLabel(method.Name(), method.Static()))
		}

		for _, field := range class.Fields() {
			info.Fields = append(info.Fields, memberLabel(field.Name(), field.Static()))
		}

		classes = append(classes, info)
	}

	for _, criterion := range criteria {
		if criterion == coverage.Exception {
			continue
		}

		for _, goal := range loader.Tracker().Goals(criterion) {
			for i := range classes {
				if classes[i].Name == goal.Class {
					classes[i].Goals[string(criterion)]++
				}
			}
		}
	}

	w.ui.DisplayClasses(ctx, classes)

	return nil
}

func memberLabel(name string, static bool) string {
	if static {
		return "static " + name
	}

	return name
}

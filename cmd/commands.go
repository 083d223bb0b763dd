package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"lbs-core/internal/catalog"
	"lbs-core/internal/ingest"
	"lbs-core/internal/model"
	"lbs-core/internal/namespace"
	"lbs-core/internal/registry"
	"lbs-core/internal/workspace"

	"github.com/spf13/cobra"
)

func parseKind(s string) (model.Kind, error) {
	k, ok := model.ParseKind(s)
	if !ok {
		return "", fmt.Errorf("unknown group kind %q (want AISD or AISI)", s)
	}
	return k, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func centrosCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "centros", Short: "Population center catalog"}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the catalog with the contents of an import file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				res, err := ingest.ImportCentersFile(cmd.Context(), args[0], ws.Catalog)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "imported %d population centers (%d rejected)\n", res.Accepted, res.Rejected)
				return nil
			})
		},
	})

	var ubigeo, dpto, prov, dist, categoria string
	list := &cobra.Command{
		Use:   "list",
		Short: "List population centers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var q catalog.Criteria
			flags := cmd.Flags()
			if flags.Changed("ubigeo") {
				q.Ubigeo = &ubigeo
			}
			if flags.Changed("departamento") {
				q.Departamento = &dpto
			}
			if flags.Changed("provincia") {
				q.Provincia = &prov
			}
			if flags.Changed("distrito") {
				q.Distrito = &dist
			}
			if flags.Changed("categoria") {
				q.Categoria = &categoria
			}
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				tw := table(a.out)
				fmt.Fprintln(tw, "ITEM\tUBIGEO\tCODIGO\tCCPP\tCATEGORIA\tPOBLACION\tDIST")
				for _, p := range ws.Catalog.Filter(q) {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
						p.Item, p.Ubigeo, p.Codigo, p.Nombre, p.Categoria, p.Poblacion, p.Distrito)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&ubigeo, "ubigeo", "", "filter by UBIGEO")
	list.Flags().StringVar(&dpto, "departamento", "", "filter by department")
	list.Flags().StringVar(&prov, "provincia", "", "filter by province")
	list.Flags().StringVar(&dist, "distrito", "", "filter by district")
	list.Flags().StringVar(&categoria, "categoria", "", "filter by category")
	cmd.AddCommand(list)
	return cmd
}

func gruposCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "grupos", Short: "Influence groups (AISD communities, AISI districts)"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <AISD|AISI>",
		Short: "List groups of a kind in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				tw := table(a.out)
				fmt.Fprintln(tw, "ORDEN\tID\tNOMBRE\tCENTROS\tPOBLACION")
				for _, g := range ws.Registry.GetAll(kind) {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", g.Orden, g.ID, g.Nombre, len(g.CentrosPoblados), g.TotalPoblacion())
				}
				return tw.Flush()
			})
		},
	})

	var ubigeos []string
	create := &cobra.Command{
		Use:   "create <AISD|AISI> <nombre>",
		Short: "Create a group at the end of its kind",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				var centers []model.PopulationCenter
				for _, u := range ubigeos {
					found := ws.Catalog.FindByUbigeo(u)
					if len(found) == 0 {
						return fmt.Errorf("no population centers with ubigeo %s", u)
					}
					centers = append(centers, found...)
				}
				g, err := ws.Registry.Create(cmd.Context(), kind, args[1], centers)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "created %s %s orden=%d centros=%d\n", kind, g.ID, g.Orden, len(g.CentrosPoblados))
				return nil
			})
		},
	}
	create.Flags().StringSliceVar(&ubigeos, "ubigeo", nil, "attach every catalog entry with this UBIGEO (repeatable)")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <AISD|AISI> <id> <nombre>",
		Short: "Rename a group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				name := args[2]
				if _, ok := ws.Registry.Update(cmd.Context(), kind, args[1], registry.Patch{Nombre: &name}); !ok {
					return fmt.Errorf("group %s not found in %s", args[1], kind)
				}
				fmt.Fprintf(a.out, "renamed %s\n", args[1])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <AISD|AISI> <id>",
		Short: "Remove a group and renumber the rest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				if !ws.Registry.Remove(cmd.Context(), kind, args[1]) {
					return fmt.Errorf("group %s not found in %s", args[1], kind)
				}
				fmt.Fprintf(a.out, "removed %s (%d remaining)\n", args[1], ws.Registry.Count(kind))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "move <AISD|AISI> <id> <orden>",
		Short: "Move a group to a new position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			orden, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("orden must be an integer: %w", err)
			}
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				if !ws.Registry.Move(cmd.Context(), kind, args[1], orden) {
					return fmt.Errorf("group %s not found in %s", args[1], kind)
				}
				g, _ := ws.Registry.GetByID(kind, args[1])
				fmt.Fprintf(a.out, "moved %s to orden=%d\n", g.ID, g.Orden)
				return nil
			})
		},
	})
	return cmd
}

func seccionesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "secciones <AISD|AISI> <id>",
		Short: "Print the section numbers and titles generated for a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				list := ws.Generator.GenerateAllForGroup(kind, args[1])
				if len(list) == 0 {
					return fmt.Errorf("group %s not found in %s", args[1], kind)
				}
				tw := table(a.out)
				fmt.Fprintln(tw, "SECCION\tNUMERO\tTITULO\tSECTION_ID")
				for _, c := range list {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.SeccionNumero, c.Numero, c.Titulo, c.SectionID)
				}
				return tw.Flush()
			})
		},
	}
}

func claveCmd(a *app) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "clave <sectionId> <baseKey>",
		Short: "Resolve the namespaced field key for a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.cfg.Strategy()
			if strategy != "" {
				var err error
				if s, err = namespace.StrategyByName(strategy); err != nil {
					return err
				}
			}
			r := namespace.New(s, a.cfg.FieldKeyCacheSize)
			fmt.Fprintln(a.out, r.FieldKey(args[0], args[1]))
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "prefix strategy override (family, order)")
	return cmd
}

func snapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "snapshot", Short: "Export or restore the full configuration"}

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file|->",
		Short: "Write catalog and groups to a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				if args[0] == "-" {
					b, err := ws.Registry.ExportJSON()
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(a.out, string(b))
					return err
				}
				if err := ingest.WriteSnapshotFile(args[0], ws.Registry.ExportSnapshot()); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "snapshot written to %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Restore a snapshot; an invalid snapshot changes nothing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				if err := ingest.ImportSnapshotFile(cmd.Context(), args[0], ws.Registry); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "snapshot restored: %d centros, %d AISD, %d AISI\n",
					ws.Catalog.Len(), ws.Registry.Count(model.AISD), ws.Registry.Count(model.AISI))
				return nil
			})
		},
	})
	return cmd
}

func clearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the catalog and every group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				ws.Registry.ClearAll(cmd.Context())
				fmt.Fprintln(a.out, "cleared")
				return nil
			})
		},
	}
}

// kvCmd：直接读写持久化条目，用于排查与手工修复
func kvCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "kv", Short: "Inspect or repair raw persisted entries"}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a persisted entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				v, ok, err := ws.Gateway().GetItem(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("key %s not found", args[0])
				}
				fmt.Fprintln(a.out, v)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Overwrite a persisted entry (takes effect on next load)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				if err := ws.Gateway().SetItem(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "set %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "del <key>",
		Short: "Delete a persisted entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd.Context(), func(ws *workspace.Workspace) error {
				if err := ws.Gateway().RemoveItem(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "deleted %s\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

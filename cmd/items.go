package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"posterm/internal/api"
	"posterm/internal/cache"
	"posterm/internal/combo"
	"posterm/internal/config"
	"posterm/internal/domain"
	"posterm/internal/item"
	"posterm/internal/ui"
)

var (
	itemTitle      string
	itemSKU        string
	itemPrice      float64
	itemNoPrice    bool
	itemParentID   int64
	itemPhotos     []string
	itemComponents []string
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Back-office item catalog management",
	Long: `Search and maintain the item catalog without starting a register
session: create items (with photo uploads), create variants under a
parent, and create combination items that expand into components when
sold.`,
}

var itemsSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search the catalog by title or SKU",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _ := newItemServices()
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		results, err := svc.Search(context.Background(), query)
		if err != nil {
			return err
		}
		ui.RenderItems(os.Stdout, results)
		return nil
	},
}

var itemsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a catalog item",
	Example: `  # A plain item
  posterm items create --title "Coffee Mug" --sku MUG-01 --price 4.50

  # A variant parent (no price of its own), then a variant under it
  posterm items create --title "T-Shirt" --no-price --parent -2
  posterm items create --title "T-Shirt S" --price 20 --parent 17

  # With photos
  posterm items create --title "Tea Pot" --price 18 --photo front.jpg --photo side.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _ := newItemServices()
		in := item.Input{
			Title:    itemTitle,
			SKU:      itemSKU,
			IsActive: true,
			ParentID: domain.ParentRef(itemParentID),
		}
		if !itemNoPrice {
			in.Price = &itemPrice
		}
		photos, closers, err := openPhotos(itemPhotos)
		if err != nil {
			return err
		}
		defer closers()

		created, err := svc.Create(context.Background(), in, photos)
		if err != nil {
			return err
		}
		fmt.Printf("Created item %d: %s\n", created.ID, created.Title)
		return nil
	},
}

var itemsUpdateCmd = &cobra.Command{
	Use:   "update <itemID>",
	Short: "Save changes to a catalog item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _ := newItemServices()
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("item id %q is not a number", args[0])
		}
		in := item.Input{
			Title:    itemTitle,
			SKU:      itemSKU,
			IsActive: true,
			ParentID: domain.ParentRef(itemParentID),
		}
		if !itemNoPrice {
			in.Price = &itemPrice
		}
		photos, closers, err := openPhotos(itemPhotos)
		if err != nil {
			return err
		}
		defer closers()

		updated, err := svc.Update(context.Background(), id, in, photos)
		if err != nil {
			return err
		}
		fmt.Printf("Updated item %d: %s\n", updated.ID, updated.Title)
		return nil
	},
}

var itemsComboCmd = &cobra.Command{
	Use:   "combo [itemID]",
	Short: "Create or update a combination item",
	Long: `Create a combination item: a catalog entry that expands into its
component lines when added to a sale. Components are given as
itemID:quantity pairs. With an item id, the existing combination is
updated instead.`,
	Example: `  posterm items combo --title "Gift Set" --price 25 --component 7:2 --component 12:1`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, combos := newItemServices()
		components, err := parseComponents(itemComponents)
		if err != nil {
			return err
		}
		in := combo.Input{
			Title:      itemTitle,
			SKU:        itemSKU,
			IsActive:   true,
			Components: components,
		}
		if !itemNoPrice {
			in.Price = &itemPrice
		}
		ctx := context.Background()
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("item id %q is not a number", args[0])
			}
			updated, err := combos.Update(ctx, id, in, nil)
			if err != nil {
				return err
			}
			fmt.Printf("Updated combination %d: %s\n", updated.ID, updated.Title)
			return nil
		}
		created, err := combos.Create(ctx, in, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Created combination %d: %s\n", created.ID, created.Title)
		return nil
	},
}

var itemsDeletePhotoCmd = &cobra.Command{
	Use:   "delete-photo <itemID> <photoID>",
	Short: "Remove a photo from an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _ := newItemServices()
		itemID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("item id %q is not a number", args[0])
		}
		photoID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("photo id %q is not a number", args[1])
		}
		return svc.DeletePhoto(context.Background(), itemID, photoID)
	},
}

func init() {
	for _, c := range []*cobra.Command{itemsCreateCmd, itemsUpdateCmd, itemsComboCmd} {
		c.Flags().StringVar(&itemTitle, "title", "", "Item title")
		c.Flags().StringVar(&itemSKU, "sku", "", "Stock keeping unit")
		c.Flags().Float64Var(&itemPrice, "price", 0, "Unit price")
		c.Flags().BoolVar(&itemNoPrice, "no-price", false, "Create without a price (variant parents)")
		c.MarkFlagRequired("title")
	}
	for _, c := range []*cobra.Command{itemsCreateCmd, itemsUpdateCmd} {
		c.Flags().Int64Var(&itemParentID, "parent", int64(domain.ParentStandalone), "Parent item id, or -1 standalone, -2 variant parent, -3 combination")
		c.Flags().StringArrayVar(&itemPhotos, "photo", nil, "Photo file to upload (repeatable)")
	}
	itemsComboCmd.Flags().StringArrayVar(&itemComponents, "component", nil, "Component as itemID:quantity (repeatable)")

	itemsCmd.AddCommand(itemsSearchCmd, itemsCreateCmd, itemsUpdateCmd, itemsComboCmd, itemsDeletePhotoCmd)
	rootCmd.AddCommand(itemsCmd)
}

func newItemServices() (*item.Service, *combo.Service) {
	cfg := config.Load()
	client := api.New(api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout})
	return item.New(client, cache.NewMemory(cfg.Cache.ItemTTL)), combo.New(client)
}

func openPhotos(paths []string) ([]api.FormFile, func(), error) {
	var files []*os.File
	var photos []api.FormFile
	closers := func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closers()
			return nil, func() {}, fmt.Errorf("open photo: %w", err)
		}
		files = append(files, f)
		photos = append(photos, api.FormFile{Field: "photos", Filename: f.Name(), Content: f})
	}
	return photos, closers, nil
}

func parseComponents(specs []string) ([]domain.ComboComponent, error) {
	var components []domain.ComboComponent
	for _, spec := range specs {
		idPart, qtyPart, found := strings.Cut(spec, ":")
		if !found {
			return nil, fmt.Errorf("component %q is not itemID:quantity", spec)
		}
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("component item id %q is not a number", idPart)
		}
		qty, err := strconv.Atoi(qtyPart)
		if err != nil {
			return nil, fmt.Errorf("component quantity %q is not a number", qtyPart)
		}
		components = append(components, domain.ComboComponent{ItemID: id, Quantity: qty})
	}
	return components, nil
}

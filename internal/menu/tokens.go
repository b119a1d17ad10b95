package menu

import "github.com/m3rciful/catalogbot/core/telegram/callbacks"

// Token domains.
const (
	shopDomain  = "shop"
	staffDomain = "adm"
)

// Page sizes.
const (
	shopCategoryPage  = 8
	shopProductPage   = 4
	staffCategoryPage = 12
	staffProductPage  = 10
	linkPage          = 10
	galleryMax        = 10
)

var (
	shopHome  = callbacks.MustCompile("shop:home")
	shopClear = callbacks.MustCompile("shop:clear")
	shopCats  = callbacks.MustCompile("shop:cats:#")
	shopCat   = callbacks.MustCompile("shop:cat:#:#")
	shopProd  = callbacks.MustCompile("shop:prod:#:#")
)

var (
	admHome  = callbacks.MustCompile("adm:home")
	admClose = callbacks.MustCompile("adm:close")

	admCats         = callbacks.MustCompile("adm:cats:#")
	admCatAdd       = callbacks.MustCompile("adm:cat:add")
	admCat          = callbacks.MustCompile("adm:cat:#")
	admCatRename    = callbacks.MustCompile("adm:cat:rename:#")
	admCatToggle    = callbacks.MustCompile("adm:cat:toggle:#")
	admCatDelete    = callbacks.MustCompile("adm:cat:delete:#")
	admCatDeleteYes = callbacks.MustCompile("adm:cat:delete:ok:#")

	admProds          = callbacks.MustCompile("adm:prods:#")
	admProdsCat       = callbacks.MustCompile("adm:prods:cat:#:#")
	admProdAdd        = callbacks.MustCompile("adm:prod:add")
	admProdAddIn      = callbacks.MustCompile("adm:prod:add:#")
	admProd           = callbacks.MustCompile("adm:prod:#")
	admProdName       = callbacks.MustCompile("adm:prod:edit:name:#")
	admProdDesc       = callbacks.MustCompile("adm:prod:edit:desc:#")
	admProdToggle     = callbacks.MustCompile("adm:prod:toggle:#")
	admProdDelete     = callbacks.MustCompile("adm:prod:delete:#")
	admProdDeleteYes  = callbacks.MustCompile("adm:prod:delete:ok:#")
	admProdCats       = callbacks.MustCompile("adm:prod:cats:edit:#")
	admProdCatsToggle = callbacks.MustCompile("adm:prod:cats:toggle:#:#")
	admProdCatsDone   = callbacks.MustCompile("adm:prod:cats:done:#")

	admVariants         = callbacks.MustCompile("adm:prod:variants:#")
	admVariantAdd       = callbacks.MustCompile("adm:variant:add:#")
	admVariant          = callbacks.MustCompile("adm:variant:#:#")
	admVariantName      = callbacks.MustCompile("adm:variant:edit:name:#:#")
	admVariantStock     = callbacks.MustCompile("adm:variant:edit:stock:#:#")
	admVariantDelete    = callbacks.MustCompile("adm:variant:delete:#:#")
	admVariantDeleteYes = callbacks.MustCompile("adm:variant:delete:ok:#:#")

	admPhotoAdd   = callbacks.MustCompile("adm:photo:add:#")
	admPhotoDone  = callbacks.MustCompile("adm:photo:done:#")
	admPhotoClear = callbacks.MustCompile("adm:photo:clear:#")

	admLinks       = callbacks.MustCompile("adm:links")
	admLinksPage   = callbacks.MustCompile("adm:links:page:#")
	admLinkAdd     = callbacks.MustCompile("adm:links:add")
	admLinkEdit    = callbacks.MustCompile("adm:links:edit:#")
	admLinkText    = callbacks.MustCompile("adm:links:txt:#")
	admLinkURL     = callbacks.MustCompile("adm:links:url:#")
	admLinkUp      = callbacks.MustCompile("adm:links:up:#")
	admLinkDown    = callbacks.MustCompile("adm:links:dn:#")
	admLinkToggle  = callbacks.MustCompile("adm:links:toggle:#")
	admLinkDelete  = callbacks.MustCompile("adm:links:del:#")
	admWelcome     = callbacks.MustCompile("adm:welcome")
	admReserve     = callbacks.MustCompile("adm:reserve")
	admReserveOn   = callbacks.MustCompile("adm:reserve:toggle")
	admReserveText = callbacks.MustCompile("adm:reserve:text")
	admReserveUser = callbacks.MustCompile("adm:reserve:username")
	admReserveTpl  = callbacks.MustCompile("adm:reserve:tpl")

	admData       = callbacks.MustCompile("adm:data")
	admDataImport = callbacks.MustCompile("adm:data:import")
	admDataExport = callbacks.MustCompile("adm:data:export")
	admDataBackup = callbacks.MustCompile("adm:data:backup")
	admDataDB     = callbacks.MustCompile("adm:data:downloaddb")

	admEditors      = callbacks.MustCompile("adm:editors")
	admEditorAdd    = callbacks.MustCompile("adm:editor:add")
	admEditor       = callbacks.MustCompile("adm:editor:#")
	admEditorToggle = callbacks.MustCompile("adm:editor:toggle:#")
	admEditorPerm   = callbacks.MustCompile("adm:editor:perm:{cats|prods|photos|links|welcome|reserve}:#")
	admEditorDelete = callbacks.MustCompile("adm:editor:del:#")
)

package render

import "context"

type Renderer interface {
	RenderHome(ctx context.Context, page HomePage) ([]byte, error)
	RenderNote(ctx context.Context, page NotePage) ([]byte, error)
	RenderFolder(ctx context.Context, page FolderPage) ([]byte, error)
	RenderList(ctx context.Context, page ListPage) ([]byte, error)
	RenderNotFound(ctx context.Context, page NotFoundPage) ([]byte, error)
	RenderArchives(ctx context.Context, page ArchivesPage) ([]byte, error)
	RenderTagsPage(ctx context.Context, page TagsPage) ([]byte, error)
	RenderRedirect(ctx context.Context, page RedirectPage) ([]byte, error)
}

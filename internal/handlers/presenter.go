package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"foodgram/internal/models"
	"foodgram/internal/services"
	"foodgram/internal/utils"
)

// MediaURLer 把媒体相对路径转成对外地址
type MediaURLer interface {
	URL(rel string) string
}

// Presenter 负责把模型序列化为 API 响应，并批量计算与当前用户相关的标记
type Presenter struct {
	media     MediaURLer
	favorites *services.MarkService
	cart      *services.MarkService
	subs      *services.SubscriptionService
}

func NewPresenter(media MediaURLer, favorites, cart *services.MarkService, subs *services.SubscriptionService) *Presenter {
	return &Presenter{media: media, favorites: favorites, cart: cart, subs: subs}
}

func (p *Presenter) mediaURL(rel string) any {
	if rel == "" {
		return nil
	}
	return p.media.URL(rel)
}

func (p *Presenter) user(u *models.User, subscribed bool) gin.H {
	return gin.H{
		"id":            u.ID,
		"email":         u.Email,
		"username":      u.Username,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"is_subscribed": subscribed,
		"avatar":        p.mediaURL(u.Avatar),
	}
}

// Users 序列化用户列表，is_subscribed 一次查询得出
func (p *Presenter) Users(ctx context.Context, viewerID uint, users []models.User) ([]gin.H, error) {
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := p.subs.SubscribedTo(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]gin.H, len(users))
	for i := range users {
		out[i] = p.user(&users[i], subscribed[users[i].ID])
	}
	return out, nil
}

func (p *Presenter) User(ctx context.Context, viewerID uint, u *models.User) (gin.H, error) {
	out, err := p.Users(ctx, viewerID, []models.User{*u})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func tagJSON(t models.Tag) gin.H {
	return gin.H{"id": t.ID, "name": t.Name, "slug": t.Slug}
}

func ingredientJSON(i models.Ingredient) gin.H {
	return gin.H{"id": i.ID, "name": i.Name, "measurement_unit": i.MeasurementUnit}
}

// ShortRecipe {id, name, image, cooking_time}
func (p *Presenter) ShortRecipe(r *models.Recipe) gin.H {
	return gin.H{
		"id":           r.ID,
		"name":         r.Name,
		"image":        p.mediaURL(r.Image),
		"cooking_time": r.CookingTime,
	}
}

// Recipes 序列化完整菜谱，收藏、购物车和关注标记按批查询
func (p *Presenter) Recipes(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]gin.H, error) {
	ids := make([]uint, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		authorIDs = append(authorIDs, r.AuthorID)
	}
	favorited, err := p.favorites.Contains(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	inCart, err := p.cart.Contains(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	subscribed, err := p.subs.SubscribedTo(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]gin.H, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		tags := make([]gin.H, len(r.Tags))
		for j, t := range r.Tags {
			tags[j] = tagJSON(t)
		}
		lines := make([]gin.H, len(r.Ingredients))
		for j, l := range r.Ingredients {
			lines[j] = gin.H{
				"id":               l.IngredientID,
				"name":             l.Ingredient.Name,
				"measurement_unit": l.Ingredient.MeasurementUnit,
				"amount":           l.Amount,
			}
		}
		out[i] = gin.H{
			"id":                  r.ID,
			"tags":                tags,
			"author":              p.user(&r.Author, subscribed[r.AuthorID]),
			"ingredients":         lines,
			"is_favorited":        favorited[r.ID],
			"is_in_shopping_cart": inCart[r.ID],
			"name":                r.Name,
			"image":               p.mediaURL(r.Image),
			"text":                r.Text,
			"text_html":           string(utils.RenderMarkdown(r.Text)),
			"cooking_time":        r.CookingTime,
		}
	}
	return out, nil
}

func (p *Presenter) Recipe(ctx context.Context, viewerID uint, r *models.Recipe) (gin.H, error) {
	out, err := p.Recipes(ctx, viewerID, []models.Recipe{*r})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// AuthorFeeds 关注列表项：作者信息 + recipes + recipes_count
func (p *Presenter) AuthorFeeds(feeds []services.AuthorFeed) []gin.H {
	out := make([]gin.H, len(feeds))
	for i := range feeds {
		out[i] = p.AuthorFeed(&feeds[i])
	}
	return out
}

func (p *Presenter) AuthorFeed(f *services.AuthorFeed) gin.H {
	item := p.user(&f.Author, true)
	recipes := make([]gin.H, len(f.Recipes))
	for i := range f.Recipes {
		recipes[i] = p.ShortRecipe(&f.Recipes[i])
	}
	item["recipes"] = recipes
	item["recipes_count"] = f.RecipesCount
	return item
}
